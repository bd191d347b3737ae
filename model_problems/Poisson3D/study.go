package Poisson3D

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/notargets/fdmpoisson/FDM3D"
	"github.com/notargets/fdmpoisson/solver"
	"github.com/notargets/fdmpoisson/utils"
)

// ErrResultDivergence marks a host/accelerator disagreement. It is logged,
// never returned from Run.
var ErrResultDivergence = errors.New("host and accelerator results diverge")

// ErrorTolerance is the largest host/accelerator difference in either error
// norm that is not reported as a divergence.
const ErrorTolerance = 1e-12

// Params are the problem settings shared by every level of a study.
type Params struct {
	Title        string
	DomainLength float64
	BaseGridSize int // grid edge at level 0
	Solver       solver.Config
}

func DefaultParams() Params {
	return Params{
		Title:        "Poisson 3D",
		DomainLength: FDM3D.DomainLength,
		BaseGridSize: 64,
		Solver:       solver.DefaultConfig(),
	}
}

// Row is the per level report. Iterations and error norms are those of the
// accelerator context.
type Row struct {
	Level      int
	GridSize   int
	DoF        int
	Iterations int
	AccelTime  time.Duration
	HostTime   time.Duration
	L2, Linf   float64
}

// Divergence is one quantity on which the two contexts disagree.
type Divergence struct {
	Level       int
	Quantity    string
	Host, Accel float64
}

func (d Divergence) Error() string {
	return fmt.Sprintf("%s at level %d: %s host %v, accelerator %v",
		ErrResultDivergence, d.Level, d.Quantity, d.Host, d.Accel)
}

func (d Divergence) Unwrap() error { return ErrResultDivergence }

// GridSizeForLevel returns base * 2^level.
func GridSizeForLevel(base, level int) int {
	return base << uint(level)
}

// DoFForGridSize is the number of interior points of an n^3 grid.
func DoFForGridSize(n int) int {
	return (n - 2) * (n - 2) * (n - 2)
}

// CompareContexts lists the quantities on which the host and accelerator
// outcomes of one level differ. Iteration counts must match exactly, the
// error norms to within ErrorTolerance.
func CompareContexts(level, hostIters, accelIters int, host, accel FDM3D.ErrorPair) (div []Divergence) {
	if hostIters != accelIters {
		div = append(div, Divergence{Level: level, Quantity: "CG iterations",
			Host: float64(hostIters), Accel: float64(accelIters)})
	}
	if math.Abs(host.L2-accel.L2) > ErrorTolerance {
		div = append(div, Divergence{Level: level, Quantity: "L2 error", Host: host.L2, Accel: accel.L2})
	}
	if math.Abs(host.Linf-accel.Linf) > ErrorTolerance {
		div = append(div, Divergence{Level: level, Quantity: "Linf error", Host: host.Linf, Accel: accel.Linf})
	}
	return
}

// Study drives the refinement levels. Each level is solved once in each
// context with the same configuration; nothing numerical is carried from
// one level to the next.
type Study struct {
	Params
	host, accel solver.Context
	ex          utils.Executor
	reporter    Reporter
	logger      *zap.Logger
}

func NewStudy(params Params, host, accel solver.Context, ex utils.Executor,
	reporter Reporter, logger *zap.Logger) (s *Study) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s = &Study{
		Params:   params,
		host:     host,
		accel:    accel,
		ex:       ex,
		reporter: reporter,
		logger:   logger,
	}
	return
}

// Run processes levels 0 through levelMax in order. The first failing level
// stops the study; rows of the levels already completed are returned with
// the error.
func (s *Study) Run(levelMax int) (rows []Row, err error) {
	if levelMax < 0 {
		return nil, fmt.Errorf("level_max %d must be non-negative", levelMax)
	}
	if err = s.Solver.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", solver.ErrSolverFailure, err)
	}
	if err = s.reporter.Begin(s.Params); err != nil {
		return
	}
	for level := 0; level <= levelMax; level++ {
		var row Row
		if row, err = s.runLevel(level); err != nil {
			err = fmt.Errorf("level %d: %w", level, err)
			return
		}
		rows = append(rows, row)
		utils.ReleaseMemory()
		s.logger.Debug("level complete", zap.Int("level", level), zap.String("memory", utils.GetMemUsage()))
	}
	err = s.reporter.End()
	return
}

func (s *Study) runLevel(level int) (row Row, err error) {
	var (
		N    = GridSizeForLevel(s.BaseGridSize, level)
		g    FDM3D.Grid
		A    utils.CSR
		b    []float64
		uRef []float64
	)
	if g, err = FDM3D.NewCubicGrid(N, s.DomainLength); err != nil {
		return
	}
	log := s.logger.With(zap.Int("level", level), zap.Int("grid", N), zap.Int("dof", g.DoF()))

	start := time.Now()
	if A, err = FDM3D.BuildPoisson(g, s.ex); err != nil {
		return
	}
	if b, err = FDM3D.BuildVector(g, FDM3D.RHSFunction, s.ex); err != nil {
		return
	}
	log.Debug("system assembled", zap.Int("nnz", A.NNZ()), zap.Duration("elapsed", time.Since(start)))

	hostRes, hostTime, err := s.solve(s.host, A, b)
	if err != nil {
		return
	}
	log.Debug("host solve", zap.Int("iterations", hostRes.Iterations),
		zap.Duration("elapsed", hostTime), zap.Uint64("cycles", hostRes.Cycles))
	accelRes, accelTime, err := s.solve(s.accel, A, b)
	if err != nil {
		return
	}
	log.Debug("accelerator solve", zap.Int("iterations", accelRes.Iterations), zap.Duration("elapsed", accelTime))

	if uRef, err = FDM3D.BuildVector(g, FDM3D.ExactSolution, s.ex); err != nil {
		return
	}
	var hostErr, accelErr FDM3D.ErrorPair
	if hostErr, err = FDM3D.ComputeErrorL2Linf(hostRes.X, uRef, s.ex); err != nil {
		return
	}
	if accelErr, err = FDM3D.ComputeErrorL2Linf(accelRes.X, uRef, s.ex); err != nil {
		return
	}

	for _, d := range CompareContexts(level, hostRes.Iterations, accelRes.Iterations, hostErr, accelErr) {
		log.Warn("context mismatch", zap.Error(d))
		if err = s.reporter.Warn(d); err != nil {
			return
		}
	}
	row = Row{
		Level:      level,
		GridSize:   N,
		DoF:        g.DoF(),
		Iterations: accelRes.Iterations,
		AccelTime:  accelTime,
		HostTime:   hostTime,
		L2:         accelErr.L2,
		Linf:       accelErr.Linf,
	}
	err = s.reporter.Row(row)
	return
}

// solve hands ctx a private copy of b so neither context can observe the
// other's inputs.
func (s *Study) solve(ctx solver.Context, A utils.CSR, b []float64) (res solver.Result, elapsed time.Duration, err error) {
	rhs := make([]float64, len(b))
	copy(rhs, b)
	start := time.Now()
	res, err = ctx.Solve(A, rhs, s.Solver)
	elapsed = time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s context: %w", ctx.Name(), err)
		return
	}
	if len(res.X) != len(b) {
		err = fmt.Errorf("%s context: %w: solution %d, system %d", ctx.Name(), FDM3D.ErrLengthMismatch, len(res.X), len(b))
		return
	}
	if !utils.AllFinite(res.X, s.ex) {
		err = fmt.Errorf("%s context: %w: non-finite solution", ctx.Name(), solver.ErrSolverFailure)
	}
	return
}
