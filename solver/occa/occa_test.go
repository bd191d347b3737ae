package occa

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notargets/fdmpoisson/FDM3D"
	"github.com/notargets/fdmpoisson/solver"
	"github.com/notargets/fdmpoisson/utils"
)

func openTestPlatform(t *testing.T, ex utils.Executor) *Platform {
	pl, err := Open(DefaultDeviceProps, ex, zap.NewNop(), false)
	if err != nil {
		t.Skipf("OCCA Serial device unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pl.Close() })
	return pl
}

func TestKernelProgramPreamble(t *testing.T) {
	{ // Defaults
		kp := NewKernelProgram(nil, ProgramConfig{})
		assert.Equal(t, 64, kp.NumBlocks)
		assert.Equal(t, 128, kp.BlockSize)
		pre := kp.GenerateKernelMain()
		assert.Contains(t, pre, "#define NBLOCKS 64\n")
		assert.Contains(t, pre, "#define BLOCK 128\n")
		assert.Contains(t, pre, "typedef double real_t;")
		assert.Contains(t, pre, "typedef long int_t;")
		assert.Equal(t, pre, kp.GetKernelPreamble())
	}
	{
		kp := NewKernelProgram(nil, ProgramConfig{NumBlocks: 8, BlockSize: 32})
		assert.Contains(t, kp.GenerateKernelMain(), "#define NBLOCKS 8\n")
		assert.Error(t, kp.RunKernel("spmv"))
	}
	for name, src := range cgKernels {
		assert.True(t, strings.Contains(src, "@kernel void "+name+"("), name)
	}
}

func TestCPUFeatures(t *testing.T) {
	f := CPUFeatures()
	assert.NotEmpty(t, f)
}

func TestKernelRange(t *testing.T) {
	// Kernels take N as a 32-bit int, larger systems must not be truncated
	{ // Fits
		assert.NoError(t, checkKernelRange(0))
		assert.NoError(t, checkKernelRange(1022*1022*1022))
		assert.NoError(t, checkKernelRange(math.MaxInt32))
	}
	{ // Overflows
		N := math.MaxInt32 + 1
		assert.NotEqual(t, N, int(int32(N)))
		err := checkKernelRange(N)
		assert.ErrorIs(t, err, solver.ErrSolverFailure)
		assert.Contains(t, err.Error(), "2147483648")
		assert.ErrorIs(t, checkKernelRange(2046*2046*2046), solver.ErrSolverFailure)
	}
}

func TestAcceleratorMatchesHost(t *testing.T) {
	ex := utils.NewExecutor(utils.Partition, 4)
	pl := openTestPlatform(t, ex)

	g, err := FDM3D.NewCubicGrid(10, FDM3D.DomainLength)
	require.NoError(t, err)
	A, err := FDM3D.BuildPoisson(g, ex)
	require.NoError(t, err)
	b, err := FDM3D.BuildVector(g, FDM3D.RHSFunction, ex)
	require.NoError(t, err)

	for _, p := range []solver.Preconditioner{solver.NoPreconditioner, solver.Jacobi} {
		cfg := solver.DefaultConfig()
		cfg.Preconditioner = p
		hr, err := pl.Host().Solve(A, b, cfg)
		require.NoError(t, err)
		ar, err := pl.Accelerator().Solve(A, b, cfg)
		require.NoError(t, err)
		assert.InDelta(t, hr.Iterations, ar.Iterations, 1)
		require.Len(t, ar.X, len(b))
		for i := range b {
			assert.InDelta(t, hr.X[i], ar.X[i], 1e-9)
		}
		assert.Less(t, solver.Residual(A, ar.X, b, ex), 1e-6)
	}
	{ // Repeat solves on the device are reproducible
		cfg := solver.DefaultConfig()
		r1, err := pl.Accelerator().Solve(A, b, cfg)
		require.NoError(t, err)
		r2, err := pl.Accelerator().Solve(A, b, cfg)
		require.NoError(t, err)
		assert.Equal(t, r1.Iterations, r2.Iterations)
		assert.Equal(t, r1.X, r2.X)
	}
}

func TestAcceleratorFailures(t *testing.T) {
	ex := utils.NewExecutor(utils.Serial, 1)
	pl := openTestPlatform(t, ex)

	g, err := FDM3D.NewCubicGrid(6, FDM3D.DomainLength)
	require.NoError(t, err)
	A, err := FDM3D.BuildPoisson(g, ex)
	require.NoError(t, err)
	b, err := FDM3D.BuildVector(g, FDM3D.RHSFunction, ex)
	require.NoError(t, err)

	cfg := solver.DefaultConfig()
	cfg.MaxIterations = 2
	_, err = pl.Accelerator().Solve(A, b, cfg)
	assert.ErrorIs(t, err, solver.ErrSolverFailure)

	_, err = pl.Accelerator().Solve(A, b[:3], solver.DefaultConfig())
	assert.ErrorIs(t, err, solver.ErrSolverFailure)

	res, err := pl.Accelerator().Solve(A, make([]float64, len(b)), solver.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, make([]float64, len(b)), res.X)
}

func TestPlatformLifecycle(t *testing.T) {
	ex := utils.NewExecutor(utils.Serial, 1)
	pl, err := Open("", ex, zap.NewNop(), false)
	if err != nil {
		t.Skipf("OCCA Serial device unavailable: %v", err)
	}
	banner := pl.Describe()
	assert.Contains(t, banner, "Serial")
	assert.Contains(t, banner, "serial, 1 workers")
	assert.Contains(t, banner, utils.BLASImplementation)
	assert.Equal(t, "host", pl.Host().Name())
	assert.Equal(t, "accelerator(Serial)", pl.Accelerator().Name())
	assert.NoError(t, pl.Close())
	assert.NoError(t, pl.Close())
}
