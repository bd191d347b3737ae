package utils

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/exascience/pargo/parallel"
	"golang.org/x/sync/errgroup"
)

// Executor runs fork-join loops over an index range [0, n). Every call
// returns only after all work has completed. Bodies receive disjoint
// sub-ranges and must not write outside of them.
type Executor interface {
	Name() string
	Workers() int
	ParallelFor(n int, body func(lo, hi int))
	// ParallelReduce evaluates body over disjoint sub-ranges and folds the
	// partial results with combine. The reduction of an empty range is 0.
	ParallelReduce(n int, body func(lo, hi int) float64, combine func(a, b float64) float64) float64
}

type ExecutorType uint8

const (
	Pargo ExecutorType = iota
	Partition
	ErrGroup
	Serial
)

var executorNames = map[ExecutorType]string{
	Pargo:     "pargo",
	Partition: "partition",
	ErrGroup:  "errgroup",
	Serial:    "serial",
}

func (et ExecutorType) String() string {
	return executorNames[et]
}

func NewExecutorType(label string) (et ExecutorType, err error) {
	label = strings.ToLower(strings.TrimSpace(label))
	for key, name := range executorNames {
		if name == label {
			return key, nil
		}
	}
	err = fmt.Errorf("unknown executor %q, must be one of pargo, partition, errgroup, serial", label)
	return
}

// NewExecutor returns an executor of the given type. workers <= 0 means one
// worker per CPU.
func NewExecutor(et ExecutorType, workers int) (ex Executor) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	switch et {
	case Partition:
		ex = &partitionExecutor{workers: workers}
	case ErrGroup:
		ex = &errGroupExecutor{workers: workers}
	case Serial:
		ex = serialExecutor{}
	case Pargo:
		fallthrough
	default:
		ex = &pargoExecutor{workers: workers}
	}
	return
}

type pargoExecutor struct {
	workers int
}

func (pe *pargoExecutor) Name() string { return Pargo.String() }
func (pe *pargoExecutor) Workers() int { return pe.workers }

func (pe *pargoExecutor) batches(n int) int {
	return min(pe.workers, n)
}

func (pe *pargoExecutor) ParallelFor(n int, body func(lo, hi int)) {
	if n <= 0 {
		return
	}
	parallel.Range(0, n, pe.batches(n), body)
}

func (pe *pargoExecutor) ParallelReduce(n int, body func(lo, hi int) float64,
	combine func(a, b float64) float64) float64 {
	if n <= 0 {
		return 0
	}
	return parallel.RangeReduceFloat64(0, n, pe.batches(n), body, combine)
}

// partitionExecutor launches one goroutine per PartitionMap bucket and
// waits on all of them.
type partitionExecutor struct {
	workers int
}

func (pe *partitionExecutor) Name() string { return Partition.String() }
func (pe *partitionExecutor) Workers() int { return pe.workers }

func (pe *partitionExecutor) ParallelFor(n int, body func(lo, hi int)) {
	if n <= 0 {
		return
	}
	var (
		buckets = NewPartitionMap(pe.workers, n).NonEmpty()
		wg      sync.WaitGroup
	)
	wg.Add(len(buckets))
	for _, b := range buckets {
		go func(lo, hi int) {
			defer wg.Done()
			body(lo, hi)
		}(b[0], b[1])
	}
	wg.Wait()
}

func (pe *partitionExecutor) ParallelReduce(n int, body func(lo, hi int) float64,
	combine func(a, b float64) float64) float64 {
	if n <= 0 {
		return 0
	}
	var (
		buckets  = NewPartitionMap(pe.workers, n).NonEmpty()
		partials = make([]float64, len(buckets))
		wg       sync.WaitGroup
	)
	wg.Add(len(buckets))
	for bn, b := range buckets {
		go func(bn, lo, hi int) {
			defer wg.Done()
			partials[bn] = body(lo, hi)
		}(bn, b[0], b[1])
	}
	wg.Wait()
	return foldInOrder(partials, combine)
}

// errGroupExecutor bounds the number of in-flight buckets with an errgroup
// limit, using twice as many buckets as workers to smooth out imbalance.
type errGroupExecutor struct {
	workers int
}

func (ee *errGroupExecutor) Name() string { return ErrGroup.String() }
func (ee *errGroupExecutor) Workers() int { return ee.workers }

func (ee *errGroupExecutor) run(n int, body func(bn, lo, hi int)) (nb int) {
	var (
		buckets = NewPartitionMap(2*ee.workers, n).NonEmpty()
		g       errgroup.Group
	)
	g.SetLimit(ee.workers)
	for bn, b := range buckets {
		g.Go(func() error {
			body(bn, b[0], b[1])
			return nil
		})
	}
	_ = g.Wait()
	return len(buckets)
}

func (ee *errGroupExecutor) ParallelFor(n int, body func(lo, hi int)) {
	if n <= 0 {
		return
	}
	ee.run(n, func(_, lo, hi int) { body(lo, hi) })
}

func (ee *errGroupExecutor) ParallelReduce(n int, body func(lo, hi int) float64,
	combine func(a, b float64) float64) float64 {
	if n <= 0 {
		return 0
	}
	partials := make([]float64, 2*ee.workers)
	nb := ee.run(n, func(bn, lo, hi int) { partials[bn] = body(lo, hi) })
	return foldInOrder(partials[:nb], combine)
}

type serialExecutor struct{}

func (serialExecutor) Name() string { return Serial.String() }
func (serialExecutor) Workers() int { return 1 }

func (serialExecutor) ParallelFor(n int, body func(lo, hi int)) {
	if n > 0 {
		body(0, n)
	}
}

func (serialExecutor) ParallelReduce(n int, body func(lo, hi int) float64,
	_ func(a, b float64) float64) float64 {
	if n <= 0 {
		return 0
	}
	return body(0, n)
}

func foldInOrder(partials []float64, combine func(a, b float64) float64) (r float64) {
	if len(partials) == 0 {
		return 0
	}
	r = partials[0]
	for _, p := range partials[1:] {
		r = combine(r, p)
	}
	return
}
