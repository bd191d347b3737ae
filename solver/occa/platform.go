// Package occa provides the accelerator execution context. The matrix and
// CG work vectors live in OCCA device memory and the iteration runs as
// generated device kernels. Open acquires the device once per process and
// Close releases it.
package occa

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/notargets/gocca"
	"go.uber.org/zap"
	"golang.org/x/sys/cpu"

	"github.com/notargets/fdmpoisson/solver"
	"github.com/notargets/fdmpoisson/utils"
)

const DefaultDeviceProps = `{"mode": "Serial"}`

type Platform struct {
	device *gocca.OCCADevice
	host   *solver.Host
	accel  *Accelerator
	ex     utils.Executor
	once   sync.Once
}

// Open creates the OCCA device described by props (OCCA JSON properties,
// e.g. {"mode": "CUDA", "device_id": 0}), compiles the CG kernels and
// returns the platform owning both. An empty props selects Serial mode.
func Open(props string, ex utils.Executor, logger *zap.Logger, countCycles bool) (pl *Platform, err error) {
	if strings.TrimSpace(props) == "" {
		props = DefaultDeviceProps
	}
	var device *gocca.OCCADevice
	if device, err = gocca.NewDevice(props); err != nil {
		return nil, fmt.Errorf("unable to create OCCA device %s: %w", props, err)
	}
	var accel *Accelerator
	if accel, err = newAccelerator(device, ex, logger); err != nil {
		device.Free()
		return nil, err
	}
	pl = &Platform{
		device: device,
		host:   solver.NewHost(ex, logger, countCycles),
		accel:  accel,
		ex:     ex,
	}
	logger.Info("platform opened", zap.String("mode", device.Mode()), zap.String("executor", ex.Name()))
	return
}

func (pl *Platform) Host() solver.Context        { return pl.host }
func (pl *Platform) Accelerator() solver.Context { return pl.accel }

// Describe returns the banner printed ahead of the study.
func (pl *Platform) Describe() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Accelerator: OCCA %s device\n", pl.device.Mode()))
	sb.WriteString(fmt.Sprintf("Host:        %d CPUs, %s/%s, features [%s]\n",
		runtime.NumCPU(), runtime.GOOS, runtime.GOARCH, strings.Join(CPUFeatures(), " ")))
	sb.WriteString(fmt.Sprintf("Executor:    %s, %d workers\n", pl.ex.Name(), pl.ex.Workers()))
	sb.WriteString(fmt.Sprintf("BLAS:        %s\n", utils.BLASImplementation))
	return sb.String()
}

// Close frees kernels, device memory and the device. It is safe to call
// more than once.
func (pl *Platform) Close() error {
	pl.once.Do(func() {
		pl.accel.kp.Free()
		pl.device.Free()
	})
	return nil
}

// CPUFeatures lists the SIMD extensions relevant to the host kernels.
func CPUFeatures() (f []string) {
	add := func(has bool, name string) {
		if has {
			f = append(f, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE42, "sse4.2")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
	}
	if len(f) == 0 {
		f = []string{"none"}
	}
	return
}

var _ solver.Platform = (*Platform)(nil)
