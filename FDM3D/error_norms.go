package FDM3D

import (
	"fmt"
	"math"

	"github.com/notargets/fdmpoisson/utils"
)

// ErrorPair holds the discrete L2 (root mean square) and L∞ (max absolute)
// norms of a pointwise difference.
type ErrorPair struct {
	L2, Linf float64
}

func (ep ErrorPair) String() string {
	return fmt.Sprintf("L2 = %.3e, Linf = %.3e", ep.L2, ep.Linf)
}

// ComputeErrorL2Linf returns sqrt(Σ(x-ref)²/N) and max|x-ref|. Both sums
// are formed as per-range partials reduced by the executor, so the result
// is independent of the order in which ranges complete. Empty inputs give
// a zero pair.
func ComputeErrorL2Linf(x, ref []float64, ex utils.Executor) (ep ErrorPair, err error) {
	if len(x) != len(ref) {
		err = fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(ref))
		return
	}
	N := len(x)
	if N == 0 {
		return
	}
	sumSq := ex.ParallelReduce(N, func(lo, hi int) (s float64) {
		for i := lo; i < hi; i++ {
			e := x[i] - ref[i]
			s += e * e
		}
		return
	}, func(a, b float64) float64 { return a + b })
	ep.Linf = ex.ParallelReduce(N, func(lo, hi int) (m float64) {
		for i := lo; i < hi; i++ {
			m = math.Max(m, math.Abs(x[i]-ref[i]))
		}
		return
	}, math.Max)
	ep.L2 = math.Sqrt(sumSq / float64(N))
	return
}
