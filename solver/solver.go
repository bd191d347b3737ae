// Package solver defines the linear solver collaborator of the refinement
// study: a solver configuration, the execution context capability in
// which a solve runs, and the host-resident context.
package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/fdmpoisson/utils"
)

var ErrSolverFailure = errors.New("solver failure")

type Preconditioner uint8

const (
	NoPreconditioner Preconditioner = iota
	Jacobi
)

var preconditionerNames = map[Preconditioner]string{
	NoPreconditioner: "none",
	Jacobi:           "Jacobi",
}

func (p Preconditioner) String() string {
	return preconditionerNames[p]
}

func NewPreconditioner(label string) (p Preconditioner, err error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "none", "":
		p = NoPreconditioner
	case "jacobi":
		p = Jacobi
	default:
		err = fmt.Errorf("unknown preconditioner %q, must be one of none, jacobi", label)
	}
	return
}

// Config is shared by every context taking part in a comparison.
// A solve converges when ‖r‖ <= AbsTol or ‖r‖ <= RelTol*‖r0‖, and fails
// when ‖r‖ >= DivTol*‖r0‖ or MaxIterations is reached.
type Config struct {
	AbsTol, RelTol, DivTol float64
	MaxIterations          int
	Preconditioner         Preconditioner
}

// DefaultConfig caps iterations at 10000. Jacobi CG on the 7-point stencil
// needs about 4.5*N iterations, so the cap covers grids up to N=2048.
func DefaultConfig() Config {
	return Config{
		AbsTol:         1e-8,
		RelTol:         1e-12,
		DivTol:         1e+6,
		MaxIterations:  10000,
		Preconditioner: Jacobi,
	}
}

func (cfg Config) Validate() error {
	switch {
	case cfg.AbsTol < 0 || cfg.RelTol < 0:
		return fmt.Errorf("tolerances must be non-negative: abs %g, rel %g", cfg.AbsTol, cfg.RelTol)
	case cfg.AbsTol == 0 && cfg.RelTol == 0:
		return fmt.Errorf("at least one of the absolute and relative tolerances must be positive")
	case cfg.DivTol <= 1:
		return fmt.Errorf("divergence tolerance %g must exceed 1", cfg.DivTol)
	case cfg.MaxIterations <= 0:
		return fmt.Errorf("max iterations %d must be positive", cfg.MaxIterations)
	}
	return nil
}

func (cfg Config) String() string {
	return fmt.Sprintf("CG(%s): abs %.1e, rel %.1e, div %.1e, max %d",
		cfg.Preconditioner, cfg.AbsTol, cfg.RelTol, cfg.DivTol, cfg.MaxIterations)
}

type Result struct {
	X          []float64
	Iterations int
	Residual   float64 // ‖b - Ax‖ at exit
	Cycles     uint64  // CPU cycles on the driving thread, 0 when not sampled
}

// Context is the place a solve's data lives and its kernels run. The host
// and accelerator implementations run the same algorithm, so any
// difference in their results is a backend effect.
type Context interface {
	Name() string
	// Solve returns x with A x ≈ b starting from x = 0. Neither A nor b is
	// modified. Non-convergence is reported as ErrSolverFailure.
	Solve(A utils.CSR, b []float64, cfg Config) (Result, error)
}

// Platform owns process-wide solver resources and hands out the two
// contexts. Close releases everything and must be called on every exit
// path once the platform has been opened.
type Platform interface {
	Host() Context
	Accelerator() Context
	Describe() string
	Close() error
}

// CheckSystem rejects an empty or non-square A and a b of the wrong length.
func CheckSystem(A utils.CSR, b []float64) error {
	if A.IsEmpty() {
		return fmt.Errorf("%w: empty matrix", ErrSolverFailure)
	}
	nr, nc := A.Dims()
	if nr != nc || nr != len(b) {
		return fmt.Errorf("%w: matrix %d x %d does not match rhs of length %d",
			ErrSolverFailure, nr, nc, len(b))
	}
	return nil
}

// InverseDiagonal returns 1/diag(A) for Jacobi preconditioning.
func InverseDiagonal(A utils.CSR, ex utils.Executor) (inv []float64, err error) {
	inv = A.Diagonal(ex)
	for i, d := range inv {
		if d == 0 {
			return nil, fmt.Errorf("%w: zero diagonal in row %d, Jacobi undefined", ErrSolverFailure, i)
		}
		inv[i] = 1 / d
	}
	return
}

// Monitor applies the stopping rules of cfg to a residual norm history.
type Monitor struct {
	cfg   Config
	r0    float64
	Iters int
}

func NewMonitor(cfg Config, r0 float64) *Monitor {
	return &Monitor{cfg: cfg, r0: r0}
}

// Converged reports whether rn satisfies either tolerance.
func (m *Monitor) Converged(rn float64) bool {
	return rn <= m.cfg.AbsTol || rn <= m.cfg.RelTol*m.r0
}

// Check is called once per completed iteration with the new residual norm.
// It returns done == true on convergence and a non-nil error on divergence,
// breakdown or exhaustion of the iteration budget.
func (m *Monitor) Check(rn float64) (done bool, err error) {
	m.Iters++
	switch {
	case rn != rn:
		err = fmt.Errorf("%w: residual is NaN after %d iterations", ErrSolverFailure, m.Iters)
	case m.Converged(rn):
		done = true
	case rn >= m.cfg.DivTol*m.r0:
		err = fmt.Errorf("%w: diverged after %d iterations, residual %.3e from %.3e",
			ErrSolverFailure, m.Iters, rn, m.r0)
	case m.Iters >= m.cfg.MaxIterations:
		err = fmt.Errorf("%w: no convergence in %d iterations, residual %.3e from %.3e",
			ErrSolverFailure, m.Iters, rn, m.r0)
	}
	return
}
