package occa

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/notargets/gocca"
	"go.uber.org/zap"

	"github.com/notargets/fdmpoisson/solver"
	"github.com/notargets/fdmpoisson/utils"
)

// Accelerator runs preconditioned CG with the matrix and every work vector
// resident on an OCCA device. Only scalars cross back to the host during
// the iteration; the solution is copied out once at the end.
type Accelerator struct {
	device *gocca.OCCADevice
	kp     *KernelProgram
	ex     utils.Executor
	logger *zap.Logger
}

func newAccelerator(device *gocca.OCCADevice, ex utils.Executor, logger *zap.Logger) (acc *Accelerator, err error) {
	acc = &Accelerator{
		device: device,
		kp:     NewKernelProgram(device, ProgramConfig{}),
		ex:     ex,
		logger: logger,
	}
	if err = acc.kp.BuildKernels(cgKernels); err != nil {
		acc.kp.Free()
		return nil, err
	}
	return
}

func (acc *Accelerator) Name() string { return "accelerator(" + acc.device.Mode() + ")" }

func (acc *Accelerator) Solve(A utils.CSR, b []float64, cfg solver.Config) (res solver.Result, err error) {
	if err = cfg.Validate(); err != nil {
		return res, fmt.Errorf("%w: %v", solver.ErrSolverFailure, err)
	}
	if err = solver.CheckSystem(A, b); err != nil {
		return
	}
	if err = checkKernelRange(len(b)); err != nil {
		return
	}
	defer acc.kp.FreeMemory()
	if err = acc.upload(A, b, cfg); err != nil {
		return
	}
	if res, err = acc.pcg(len(b), cfg); err != nil {
		return
	}
	res.X = make([]float64, len(b))
	acc.device.Finish()
	acc.kp.GetMemory("x").CopyTo(unsafe.Pointer(&res.X[0]), int64(len(b)*8))
	return
}

// checkKernelRange rejects systems whose row count does not fit the kernels'
// "const int N" argument.
func checkKernelRange(N int) error {
	if N > math.MaxInt32 {
		return fmt.Errorf("%w: %d unknowns exceed the kernel index range %d",
			solver.ErrSolverFailure, N, math.MaxInt32)
	}
	return nil
}

func (acc *Accelerator) upload(A utils.CSR, b []float64, cfg solver.Config) (err error) {
	var (
		N          = len(b)
		offsets    = A.RowOffsets()
		cols       = A.Cols()
		rowOffset  = make([]int64, len(offsets))
		colIndices = make([]int64, len(cols))
	)
	acc.ex.ParallelFor(len(offsets), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			rowOffset[i] = int64(offsets[i])
		}
	})
	acc.ex.ParallelFor(len(cols), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			colIndices[i] = int64(cols[i])
		}
	})
	acc.kp.AllocateInt("rowOffset", rowOffset)
	acc.kp.AllocateInt("col", colIndices)
	acc.kp.AllocateFloat("val", len(A.Values()), A.Values())
	acc.kp.AllocateFloat("x", N, make([]float64, N))
	acc.kp.AllocateFloat("r", N, b)
	for _, name := range []string{"z", "p", "Ap"} {
		acc.kp.AllocateFloat(name, N, nil)
	}
	acc.kp.AllocateFloat("partial", acc.kp.NumBlocks, nil)
	if cfg.Preconditioner == solver.Jacobi {
		var invDiag []float64
		if invDiag, err = solver.InverseDiagonal(A, acc.ex); err != nil {
			return
		}
		acc.kp.AllocateFloat("invDiag", N, invDiag)
	}
	return
}

// run launches a kernel. Scalar int arguments are passed as int32 to
// match the "const int" kernel parameters.
func (acc *Accelerator) run(name string, args ...interface{}) error {
	if err := acc.kp.RunKernel(name, args...); err != nil {
		return fmt.Errorf("%w: device kernel %s: %v", solver.ErrSolverFailure, name, err)
	}
	return nil
}

func (acc *Accelerator) dot(N int, x, y string) (d float64, err error) {
	kp := acc.kp
	if err = acc.run("dotPartial", int32(N), kp.GetMemory(x), kp.GetMemory(y), kp.GetMemory("partial")); err != nil {
		return
	}
	partial := make([]float64, kp.NumBlocks)
	acc.device.Finish()
	kp.GetMemory("partial").CopyTo(unsafe.Pointer(&partial[0]), int64(len(partial)*8))
	for _, p := range partial {
		d += p
	}
	return
}

func (acc *Accelerator) precondition(N int, cfg solver.Config) error {
	kp := acc.kp
	if cfg.Preconditioner == solver.Jacobi {
		return acc.run("scale", int32(N), kp.GetMemory("invDiag"), kp.GetMemory("r"), kp.GetMemory("z"))
	}
	return acc.run("copyVec", int32(N), kp.GetMemory("r"), kp.GetMemory("z"))
}

func (acc *Accelerator) pcg(N int, cfg solver.Config) (res solver.Result, err error) {
	var (
		kp = acc.kp
		rr float64
	)
	if rr, err = acc.dot(N, "r", "r"); err != nil {
		return
	}
	r0 := math.Sqrt(rr)
	res.Residual = r0
	mon := solver.NewMonitor(cfg, r0)
	if r0 == 0 || mon.Converged(r0) {
		return
	}
	if err = acc.precondition(N, cfg); err != nil {
		return
	}
	if err = acc.run("copyVec", int32(N), kp.GetMemory("z"), kp.GetMemory("p")); err != nil {
		return
	}
	var rz float64
	if rz, err = acc.dot(N, "r", "z"); err != nil {
		return
	}
	for {
		if err = acc.run("spmv", int32(N), kp.GetMemory("rowOffset"), kp.GetMemory("col"), kp.GetMemory("val"),
			kp.GetMemory("p"), kp.GetMemory("Ap")); err != nil {
			return
		}
		var pAp float64
		if pAp, err = acc.dot(N, "p", "Ap"); err != nil {
			return
		}
		if !(pAp > 0) {
			err = fmt.Errorf("%w: breakdown, p'Ap = %g after %d iterations", solver.ErrSolverFailure, pAp, mon.Iters)
			return
		}
		alpha := rz / pAp
		if err = acc.run("axpy", int32(N), alpha, kp.GetMemory("p"), kp.GetMemory("x")); err != nil {
			return
		}
		if err = acc.run("axpy", int32(N), -alpha, kp.GetMemory("Ap"), kp.GetMemory("r")); err != nil {
			return
		}
		if rr, err = acc.dot(N, "r", "r"); err != nil {
			return
		}
		res.Residual = math.Sqrt(rr)

		var done bool
		done, err = mon.Check(res.Residual)
		res.Iterations = mon.Iters
		if done || err != nil {
			if err == nil {
				acc.logger.Debug("accelerator CG converged",
					zap.Int("iterations", res.Iterations), zap.Float64("residual", res.Residual))
			}
			return
		}
		if err = acc.precondition(N, cfg); err != nil {
			return
		}
		var rzNew float64
		if rzNew, err = acc.dot(N, "r", "z"); err != nil {
			return
		}
		beta := rzNew / rz
		rz = rzNew
		if err = acc.run("xpay", int32(N), beta, kp.GetMemory("z"), kp.GetMemory("p")); err != nil {
			return
		}
	}
}

var _ solver.Context = (*Accelerator)(nil)
