package utils

import (
	"errors"
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// ErrPerfUnavailable marks counter failures, as opposed to failures of the
// measured function.
var ErrPerfUnavailable = errors.New("hardware counters unavailable")

// MeasureCycles runs f exactly once with a perf_event CPU cycle counter
// attached to the calling OS thread. Worker goroutines running on other
// threads are not counted. perf_event_open is often not permitted inside
// containers, in which case f runs uncounted and the returned error wraps
// ErrPerfUnavailable.
func MeasureCycles(f func() error) (cycles uint64, err error) {
	var (
		ran  bool
		fErr error
		pv   *perf.ProfileValue
	)
	pv, err = perf.CPUCycles(func() error {
		ran = true
		fErr = f()
		return fErr
	})
	if !ran {
		if fErr = f(); fErr != nil {
			return 0, fErr
		}
	}
	switch {
	case fErr != nil:
		return 0, fErr
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrPerfUnavailable, err)
	}
	return pv.Value, nil
}
