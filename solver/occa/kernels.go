package occa

// Row loops stride by STRIDE so that any N runs on the fixed launch shape.
// Dot products are reduced to NBLOCKS partials in block order and summed on
// the host in the same order, so repeated solves are bitwise reproducible.
var cgKernels = map[string]string{
	"spmv": `
@kernel void spmv(const int N,
                  const int_t *rowOffset,
                  const int_t *col,
                  const real_t *val,
                  const real_t *x,
                  real_t *y) {
    for (int b = 0; b < NBLOCKS; ++b; @outer(0)) {
        for (int t = 0; t < BLOCK; ++t; @inner(0)) {
            for (int row = b * BLOCK + t; row < N; row += STRIDE) {
                real_t sum = REAL_ZERO;
                for (int_t e = rowOffset[row]; e < rowOffset[row + 1]; ++e) {
                    sum += val[e] * x[col[e]];
                }
                y[row] = sum;
            }
        }
    }
}
`,
	// y += a*x
	"axpy": `
@kernel void axpy(const int N, const real_t a, const real_t *x, real_t *y) {
    for (int b = 0; b < NBLOCKS; ++b; @outer(0)) {
        for (int t = 0; t < BLOCK; ++t; @inner(0)) {
            for (int i = b * BLOCK + t; i < N; i += STRIDE) {
                y[i] += a * x[i];
            }
        }
    }
}
`,
	// y = x + beta*y
	"xpay": `
@kernel void xpay(const int N, const real_t beta, const real_t *x, real_t *y) {
    for (int b = 0; b < NBLOCKS; ++b; @outer(0)) {
        for (int t = 0; t < BLOCK; ++t; @inner(0)) {
            for (int i = b * BLOCK + t; i < N; i += STRIDE) {
                y[i] = x[i] + beta * y[i];
            }
        }
    }
}
`,
	// z = d .* r, Jacobi application
	"scale": `
@kernel void scale(const int N, const real_t *d, const real_t *r, real_t *z) {
    for (int b = 0; b < NBLOCKS; ++b; @outer(0)) {
        for (int t = 0; t < BLOCK; ++t; @inner(0)) {
            for (int i = b * BLOCK + t; i < N; i += STRIDE) {
                z[i] = d[i] * r[i];
            }
        }
    }
}
`,
	"copyVec": `
@kernel void copyVec(const int N, const real_t *src, real_t *dst) {
    for (int b = 0; b < NBLOCKS; ++b; @outer(0)) {
        for (int t = 0; t < BLOCK; ++t; @inner(0)) {
            for (int i = b * BLOCK + t; i < N; i += STRIDE) {
                dst[i] = src[i];
            }
        }
    }
}
`,
	"dotPartial": `
@kernel void dotPartial(const int N, const real_t *x, const real_t *y, real_t *partial) {
    for (int b = 0; b < NBLOCKS; ++b; @outer(0)) {
        for (int t = 0; t < 1; ++t; @inner(0)) {
            const int chunk = (N + NBLOCKS - 1) / NBLOCKS;
            const int lo = b * chunk;
            int hi = lo + chunk;
            if (hi > N) hi = N;
            real_t s = REAL_ZERO;
            for (int i = lo; i < hi; ++i) {
                s += x[i] * y[i];
            }
            partial[b] = s;
        }
    }
}
`,
}
