package FDM3D

import (
	"github.com/notargets/fdmpoisson/utils"
)

// BuildPoisson assembles the 7-point finite difference operator -Δ on the
// interior of g with homogeneous Dirichlet values eliminated. Rows follow
// Index3D. Each row stores the diagonal first, then the -x, +x, -y, +y,
// -z, +z neighbors that exist.
//
// Assembly is split in three phases separated by full barriers: per-row
// counts in parallel, a serial prefix sum into row offsets, and a parallel
// fill where every row writes only to its own precomputed slot range.
func BuildPoisson(g Grid, ex utils.Executor) (A utils.CSR, err error) {
	if err = g.Validate(); err != nil {
		return
	}
	var (
		Nxi, Nyi, Nzi = g.Interior()
		N             = g.DoF()
		rowOffset     = make([]int, N+1)
	)
	// Phase 1: stencil width of each row, stored shifted by one so the
	// prefix sum can run in place
	ex.ParallelFor(N, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			i, j, k := IJK(row, Nxi, Nyi)
			rowOffset[row+1] = stencilWidth(i, j, k, Nxi, Nyi, Nzi)
		}
	})

	// Phase 2
	for row := 0; row < N; row++ {
		rowOffset[row+1] += rowOffset[row]
	}

	// Phase 3
	var (
		nnz           = rowOffset[N]
		col           = make([]int, nnz)
		val           = make([]float64, nnz)
		hx2, hy2, hz2 = g.InvSpacing2()
		diag          = 2 * (hx2 + hy2 + hz2)
	)
	ex.ParallelFor(N, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			var (
				i, j, k = IJK(row, Nxi, Nyi)
				p       = rowOffset[row]
			)
			put := func(c int, v float64) {
				col[p], val[p] = c, v
				p++
			}
			put(row, diag)
			if i > 0 {
				put(Index3D(i-1, j, k, Nxi, Nyi), -hx2)
			}
			if i < Nxi-1 {
				put(Index3D(i+1, j, k, Nxi, Nyi), -hx2)
			}
			if j > 0 {
				put(Index3D(i, j-1, k, Nxi, Nyi), -hy2)
			}
			if j < Nyi-1 {
				put(Index3D(i, j+1, k, Nxi, Nyi), -hy2)
			}
			if k > 0 {
				put(Index3D(i, j, k-1, Nxi, Nyi), -hz2)
			}
			if k < Nzi-1 {
				put(Index3D(i, j, k+1, Nxi, Nyi), -hz2)
			}
		}
	})
	return utils.NewCSR(N, N, rowOffset, col, val, "FDM_Poisson_3D")
}

// stencilWidth counts the row itself plus every axis neighbor that is an
// interior point.
func stencilWidth(i, j, k, Nxi, Nyi, Nzi int) (nnz int) {
	nnz = 1
	for _, c := range [3][2]int{{i, Nxi}, {j, Nyi}, {k, Nzi}} {
		if c[0] > 0 {
			nnz++
		}
		if c[0] < c[1]-1 {
			nnz++
		}
	}
	return
}
