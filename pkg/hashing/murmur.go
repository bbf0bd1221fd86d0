package hashing

import (
	"math/bits"
	"unicode/utf16"
)

const (
	c1 uint32 = 0xcc9e2d51
	c2 uint32 = 0x1b873593
)

// Hash32 hashes s with seed 0. Two UTF-16 code units are packed into each
// 32-bit block (low unit first); an odd trailing unit is mixed on its own.
func Hash32(s string) int32 {
	units := utf16.Encode([]rune(s))
	n := len(units)
	roundedEnd := n &^ 1

	var h1 uint32
	for i := 0; i < roundedEnd; i += 2 {
		k1 := uint32(units[i]) | uint32(units[i+1])<<16
		h1 ^= mixK1(k1)
		h1 = bits.RotateLeft32(h1, 13)
		h1 = h1*5 + 0xe6546b64
	}

	if n%2 == 1 {
		h1 ^= mixK1(uint32(units[roundedEnd]))
	}

	h1 ^= uint32(n) << 1
	return int32(fmix32(h1))
}

func mixK1(k1 uint32) uint32 {
	k1 *= c1
	k1 = bits.RotateLeft32(k1, 15)
	return k1 * c2
}

func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// Hasher memoizes Hash32 by exact input string.
type Hasher struct {
	cache *Cache[string, int32]
}

// NewHasher creates a Hasher with an empty cache.
func NewHasher() *Hasher {
	return &Hasher{cache: NewCache[string, int32]()}
}

// Hash32 returns the memoized hash of s.
func (h *Hasher) Hash32(s string) int32 {
	return h.cache.GetOrCompute(s, func() int32 {
		return Hash32(s)
	})
}

// Len returns the number of memoized inputs.
func (h *Hasher) Len() int {
	return h.cache.Len()
}
