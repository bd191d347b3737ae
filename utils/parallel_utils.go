package utils

// PartitionMap splits the index range [0, MaxIndex) into ParallelDegree
// contiguous buckets whose sizes differ by at most one.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of each bucket
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for bn := 0; bn < ParallelDegree; bn++ {
		pm.Partitions[bn] = pm.Split1D(bn)
	}
	return
}

// Split1D returns the bucket for one worker. The remainder of the division
// is spread one item at a time over the leading buckets.
func (pm *PartitionMap) Split1D(bucketNum int) (bucket [2]int) {
	var (
		Npart     = pm.MaxIndex / pm.ParallelDegree
		remainder = pm.MaxIndex % pm.ParallelDegree
		extra     = min(bucketNum, remainder)
	)
	bucket[0] = bucketNum*Npart + extra
	bucket[1] = bucket[0] + Npart
	if bucketNum < remainder {
		bucket[1]++
	}
	return
}

// NonEmpty returns the buckets holding at least one index, in order.
func (pm *PartitionMap) NonEmpty() (buckets [][2]int) {
	buckets = make([][2]int, 0, pm.ParallelDegree)
	for _, b := range pm.Partitions {
		if b[1] > b[0] {
			buckets = append(buckets, b)
		}
	}
	return
}
