package occa

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"github.com/notargets/gocca"
)

// KernelProgram manages code generation and execution for the CG kernels.
// Vectors are strided over NBLOCKS outer blocks of BLOCK inner threads:
// row r is handled by thread (r % (NBLOCKS*BLOCK)), so the same source runs
// unchanged on Serial, OpenMP and GPU backends.
type KernelProgram struct {
	NumBlocks int // NBLOCKS, also the length of every partial-sum buffer
	BlockSize int // BLOCK, inner threads per block

	kernelPreamble string

	device  *gocca.OCCADevice
	kernels map[string]*gocca.OCCAKernel
	memory  map[string]*gocca.OCCAMemory
}

// ProgramConfig holds configuration for creating a KernelProgram
type ProgramConfig struct {
	NumBlocks int // default: 64
	BlockSize int // default: 128
}

func NewKernelProgram(device *gocca.OCCADevice, cfg ProgramConfig) *KernelProgram {
	if cfg.NumBlocks <= 0 {
		cfg.NumBlocks = 64
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 128
	}
	return &KernelProgram{
		NumBlocks: cfg.NumBlocks,
		BlockSize: cfg.BlockSize,
		device:    device,
		kernels:   make(map[string]*gocca.OCCAKernel),
		memory:    make(map[string]*gocca.OCCAMemory),
	}
}

// GenerateKernelMain generates the preamble shared by every kernel
func (kp *KernelProgram) GenerateKernelMain() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("#define NBLOCKS %d\n", kp.NumBlocks))
	sb.WriteString(fmt.Sprintf("#define BLOCK %d\n", kp.BlockSize))
	sb.WriteString("#define STRIDE (NBLOCKS * BLOCK)\n")
	sb.WriteString("\n")
	sb.WriteString("typedef double real_t;\n")
	sb.WriteString("typedef long int_t;\n")
	sb.WriteString("#define REAL_ZERO 0.0\n")
	sb.WriteString("\n")
	kp.kernelPreamble = sb.String()
	return kp.kernelPreamble
}

// GetKernelPreamble returns the generated preamble
func (kp *KernelProgram) GetKernelPreamble() string {
	return kp.kernelPreamble
}

// BuildKernel compiles a kernel from source with the generated preamble
func (kp *KernelProgram) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	if kp.kernelPreamble == "" {
		kp.GenerateKernelMain()
	}
	fullSource := kp.kernelPreamble + "\n" + kernelSource
	kernel, err := kp.device.BuildKernelFromString(fullSource, kernelName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}
	kp.RegisterKernel(kernelName, kernel)
	return kernel, nil
}

// BuildKernels compiles every entry of sources, keyed by kernel name.
func (kp *KernelProgram) BuildKernels(sources map[string]string) (err error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err = kp.BuildKernel(sources[name], name); err != nil {
			return
		}
	}
	return
}

func (kp *KernelProgram) RegisterKernel(name string, kernel *gocca.OCCAKernel) {
	if kernel == nil {
		return
	}
	kp.kernels[name] = kernel
}

// RunKernel executes a registered kernel with the given arguments
func (kp *KernelProgram) RunKernel(name string, args ...interface{}) error {
	kernel, exists := kp.kernels[name]
	if !exists {
		return fmt.Errorf("kernel %s not found", name)
	}
	return kernel.RunWithArgs(args...)
}

// AllocateFloat reserves a device array of n reals, initialized from src
// when src is non-nil. A previous allocation under the same name is freed.
func (kp *KernelProgram) AllocateFloat(name string, n int, src []float64) *gocca.OCCAMemory {
	var ptr unsafe.Pointer
	if len(src) > 0 {
		ptr = unsafe.Pointer(&src[0])
	}
	return kp.allocate(name, int64(n*8), ptr)
}

// AllocateInt reserves a device array of int_t initialized from src.
func (kp *KernelProgram) AllocateInt(name string, src []int64) *gocca.OCCAMemory {
	var ptr unsafe.Pointer
	if len(src) > 0 {
		ptr = unsafe.Pointer(&src[0])
	}
	return kp.allocate(name, int64(len(src)*8), ptr)
}

func (kp *KernelProgram) allocate(name string, bytes int64, ptr unsafe.Pointer) *gocca.OCCAMemory {
	if old, ok := kp.memory[name]; ok && old != nil {
		old.Free()
	}
	if bytes == 0 {
		bytes = 8
	}
	mem := kp.device.Malloc(bytes, ptr, nil)
	kp.memory[name] = mem
	return mem
}

// GetMemory returns a device memory handle by name
func (kp *KernelProgram) GetMemory(name string) *gocca.OCCAMemory {
	return kp.memory[name]
}

// FreeMemory releases device arrays but keeps compiled kernels for reuse.
func (kp *KernelProgram) FreeMemory() {
	for name, mem := range kp.memory {
		if mem != nil {
			mem.Free()
		}
		delete(kp.memory, name)
	}
}

// Free releases all allocated resources
func (kp *KernelProgram) Free() {
	for name, kernel := range kp.kernels {
		if kernel != nil {
			kernel.Free()
		}
		delete(kp.kernels, name)
	}
	kp.FreeMemory()
}
