package generator

import (
	"math/rand/v2"
	"time"
)

// Random is the only source of nondeterminism in the generator.
// *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// NewSeededRandom returns a PCG-backed source; equal seeds give equal streams.
func NewSeededRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newTimeSeededRandom() *rand.Rand {
	return NewSeededRandom(uint64(time.Now().UnixNano()))
}

func uniformFloat(r Random, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}

// uniformInt draws from [lo, hi).
func uniformInt(r Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
