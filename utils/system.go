package utils

import (
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

// ReleaseMemory returns freed heap to the OS. Called between refinement
// levels, each of which allocates roughly 8x more than the previous one.
func ReleaseMemory() {
	runtime.GC()
	debug.FreeOSMemory()
}

// AllFinite reports whether no entry is NaN or infinite.
func AllFinite(v []float64, ex Executor) bool {
	bad := ex.ParallelReduce(len(v), func(lo, hi int) float64 {
		for _, f := range v[lo:hi] {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return 1
			}
		}
		return 0
	}, math.Max)
	return bad == 0
}
