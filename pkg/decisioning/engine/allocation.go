package engine

import (
	"math"

	"odd-hq/decisioning/pkg/hashing"
)

const maxPercentage = 100

type allocationKey struct {
	id      string
	buckets int
}

// Allocator assigns identities to percentage buckets. Results are memoized
// per (id, buckets) for the allocator's lifetime, so the same visitor always
// lands in the same bucket. Separate allocators share nothing.
type Allocator struct {
	hasher *hashing.Hasher
	cache  *hashing.Cache[allocationKey, float64]
}

// NewAllocator creates an allocator with empty caches.
func NewAllocator() *Allocator {
	return &Allocator{
		hasher: hashing.NewHasher(),
		cache:  hashing.NewCache[allocationKey, float64](),
	}
}

// Allocate returns a percentage in [0, 100) rounded to two decimals:
// round((|hash32(id)| mod buckets) / buckets * 100 * 100) / 100.
func (a *Allocator) Allocate(id string, buckets int) float64 {
	if buckets <= 0 {
		return 0
	}
	return a.cache.GetOrCompute(allocationKey{id: id, buckets: buckets}, func() float64 {
		return allocation(a.hasher.Hash32(id), buckets)
	})
}

// Len returns the number of memoized allocations.
func (a *Allocator) Len() int {
	return a.cache.Len()
}

func allocation(hash int32, buckets int) float64 {
	abs := math.Abs(float64(hash))
	bucket := math.Mod(abs, float64(buckets))
	value := bucket / float64(buckets) * maxPercentage
	return roundHalfUp(value*maxPercentage) / maxPercentage
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
