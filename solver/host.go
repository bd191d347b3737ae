package solver

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/fdmpoisson/utils"
)

// Host runs preconditioned CG in host memory. Matrix-vector products are
// split over the executor, vector kernels go through gonum.
type Host struct {
	ex          utils.Executor
	logger      *zap.Logger
	countCycles bool
}

func NewHost(ex utils.Executor, logger *zap.Logger, countCycles bool) *Host {
	return &Host{ex: ex, logger: logger, countCycles: countCycles}
}

func (h *Host) Name() string { return "host" }

func (h *Host) Solve(A utils.CSR, b []float64, cfg Config) (res Result, err error) {
	if err = cfg.Validate(); err != nil {
		return res, fmt.Errorf("%w: %v", ErrSolverFailure, err)
	}
	if err = CheckSystem(A, b); err != nil {
		return
	}
	if !h.countCycles {
		return h.pcg(A, b, cfg)
	}
	var cycles uint64
	cycles, err = utils.MeasureCycles(func() (e error) {
		res, e = h.pcg(A, b, cfg)
		return
	})
	if errors.Is(err, utils.ErrPerfUnavailable) {
		h.logger.Warn("cycle counting disabled", zap.Error(err))
		h.countCycles = false
		err = nil
	}
	res.Cycles = cycles
	return
}

func vec(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Data: x, Inc: 1}
}

func (h *Host) pcg(A utils.CSR, b []float64, cfg Config) (res Result, err error) {
	var (
		N      = len(b)
		x      = make([]float64, N)
		r      = make([]float64, N)
		z      = make([]float64, N)
		p      = make([]float64, N)
		Ap     = make([]float64, N)
		invDia []float64
	)
	res.X = x
	copy(r, b)
	r0 := blas64.Nrm2(vec(r))
	res.Residual = r0
	mon := NewMonitor(cfg, r0)
	if r0 == 0 || mon.Converged(r0) {
		return
	}
	if cfg.Preconditioner == Jacobi {
		if invDia, err = InverseDiagonal(A, h.ex); err != nil {
			return
		}
	}
	precondition := func() {
		if invDia == nil {
			copy(z, r)
			return
		}
		floats.MulTo(z, invDia, r)
	}

	precondition()
	copy(p, z)
	rz := blas64.Dot(vec(r), vec(z))
	for {
		A.MulVec(Ap, p, h.ex)
		pAp := blas64.Dot(vec(p), vec(Ap))
		if !(pAp > 0) {
			err = fmt.Errorf("%w: breakdown, p'Ap = %g after %d iterations", ErrSolverFailure, pAp, mon.Iters)
			return
		}
		alpha := rz / pAp
		blas64.Axpy(alpha, vec(p), vec(x))
		blas64.Axpy(-alpha, vec(Ap), vec(r))
		res.Residual = blas64.Nrm2(vec(r))

		var done bool
		done, err = mon.Check(res.Residual)
		res.Iterations = mon.Iters
		if done || err != nil {
			if err == nil {
				h.logger.Debug("host CG converged",
					zap.Int("iterations", res.Iterations), zap.Float64("residual", res.Residual))
			}
			return
		}
		precondition()
		rzNew := blas64.Dot(vec(r), vec(z))
		beta := rzNew / rz
		rz = rzNew
		floats.AddScaledTo(p, z, beta, p)
	}
}

// Residual returns ‖b - Ax‖ computed with the executor, for checking a
// solution produced by any context.
func Residual(A utils.CSR, x, b []float64, ex utils.Executor) float64 {
	Ax := make([]float64, len(b))
	A.MulVec(Ax, x, ex)
	floats.Sub(Ax, b)
	return floats.Norm(Ax, 2)
}

var _ Context = (*Host)(nil)
