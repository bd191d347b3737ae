package utils

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testExecutors() (exs []Executor) {
	for _, et := range []ExecutorType{Pargo, Partition, ErrGroup, Serial} {
		for _, w := range []int{1, 3, 16} {
			exs = append(exs, NewExecutor(et, w))
		}
	}
	return
}

func TestExecutorType(t *testing.T) {
	for _, name := range []string{"pargo", "partition", "errgroup", "serial", " Pargo "} {
		et, err := NewExecutorType(name)
		require.NoError(t, err)
		assert.Equal(t, NewExecutor(et, 2).Name(), et.String())
	}
	_, err := NewExecutorType("openmp")
	assert.Error(t, err)
	assert.Greater(t, NewExecutor(Pargo, 0).Workers(), 0)
	assert.Equal(t, 1, NewExecutor(Serial, 8).Workers())
}

func TestParallelForCoversRangeOnce(t *testing.T) {
	for _, ex := range testExecutors() {
		for _, n := range []int{0, 1, 2, 5, 17, 1000} {
			hits := make([]int32, n)
			ex.ParallelFor(n, func(lo, hi int) {
				assert.True(t, lo < hi)
				for i := lo; i < hi; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i := range hits {
				assert.Equal(t, int32(1), hits[i], "%s/%d n=%d i=%d", ex.Name(), ex.Workers(), n, i)
			}
		}
	}
}

func TestParallelReduce(t *testing.T) {
	sum := func(a, b float64) float64 { return a + b }
	for _, ex := range testExecutors() {
		for _, n := range []int{1, 2, 7, 100, 4097} {
			got := ex.ParallelReduce(n, func(lo, hi int) (s float64) {
				for i := lo; i < hi; i++ {
					s += float64(i)
				}
				return
			}, sum)
			assert.Equal(t, float64(n*(n-1)/2), got, "%s n=%d", ex.Name(), n)

			mx := ex.ParallelReduce(n, func(lo, hi int) (m float64) {
				for i := lo; i < hi; i++ {
					m = math.Max(m, math.Abs(math.Sin(float64(i))))
				}
				return
			}, math.Max)
			var want float64
			for i := 0; i < n; i++ {
				want = math.Max(want, math.Abs(math.Sin(float64(i))))
			}
			assert.Equal(t, want, mx)
		}
		assert.Equal(t, 0., ex.ParallelReduce(0, func(lo, hi int) float64 { return 1 }, sum))
	}
}

func TestParallelReduceRepeatable(t *testing.T) {
	// Partials are combined in bucket order, so repeated reductions agree bit
	// for bit regardless of scheduling
	data := make([]float64, 10007)
	for i := range data {
		data[i] = math.Sin(float64(i)) * 1e-3 * float64(i%13)
	}
	body := func(lo, hi int) (s float64) {
		for _, v := range data[lo:hi] {
			s += v * v
		}
		return
	}
	for _, et := range []ExecutorType{Partition, ErrGroup, Pargo} {
		ex := NewExecutor(et, 8)
		first := ex.ParallelReduce(len(data), body, func(a, b float64) float64 { return a + b })
		for n := 0; n < 20; n++ {
			assert.Equal(t, first, ex.ParallelReduce(len(data), body, func(a, b float64) float64 { return a + b }))
		}
	}
}

func TestAllFinite(t *testing.T) {
	ex := NewExecutor(Partition, 4)
	v := make([]float64, 100)
	assert.True(t, AllFinite(v, ex))
	v[63] = math.Inf(-1)
	assert.False(t, AllFinite(v, ex))
	v[63] = math.NaN()
	assert.False(t, AllFinite(v, ex))
	assert.True(t, AllFinite(nil, ex))
}
