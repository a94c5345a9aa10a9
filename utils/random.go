package utils

import (
	"math/rand"
)

// Source is the random number source used for sampling. *rand.Rand satisfies it.
type Source interface {
	// Intn returns a uniformly distributed integer in [0, n).
	Intn(n int) int
}

// NewSource returns a deterministic Source for the given seed.
func NewSource(seed int64) Source {
	//nolint:gosec
	return rand.New(rand.NewSource(seed))
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given source.
func SampleRandomIntRange(min, max int, r Source) int {
	return r.Intn(max-min+1) + min
}

// SampleDistinctInts fills dst with len(dst) distinct integers drawn uniformly from [0, n). It
// panics if len(dst) > n.
func SampleDistinctInts(dst []int, n int, r Source) {
	if len(dst) > n {
		panic("cannot sample more distinct values than the population size")
	}
	for i := range dst {
	draw:
		for {
			candidate := SampleRandomIntRange(0, n-1, r)
			for _, prev := range dst[:i] {
				if prev == candidate {
					continue draw
				}
			}
			dst[i] = candidate
			break
		}
	}
}

// ShardSeed derives the seed of one shard of a parallel computation from the base seed, using a
// splitmix64 step so neighbouring shards get unrelated streams.
func ShardSeed(seed int64, shard int) int64 {
	if shard == 0 {
		return seed
	}
	z := uint64(seed) + uint64(shard)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}
