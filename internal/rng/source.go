// Package rng defines the random capability consumed by the evolution core.
package rng

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrNoWeight = errors.New("no positive weight to choose from")

// Source produces the uniform booleans, floats, ranged integers and weighted
// choices the genetic operators need.
type Source interface {
	// Bool returns true with probability p.
	Bool(p float64) bool
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntRange returns a value in [lo, hi]; hi < lo returns lo.
	IntRange(lo, hi int) int
	// Uniform returns a value in [lo, hi).
	Uniform(lo, hi float64) float64
	// Weighted returns an index with probability proportional to its weight.
	Weighted(weights []float64) (int, error)
}

type Rand struct {
	r *rand.Rand
}

func New(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Wrap adapts an existing *rand.Rand.
func Wrap(r *rand.Rand) *Rand {
	return &Rand{r: r}
}

func (s *Rand) Bool(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.r.Float64() < p
}

func (s *Rand) Float64() float64 {
	return s.r.Float64()
}

func (s *Rand) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo+1)
}

func (s *Rand) Uniform(lo, hi float64) float64 {
	return lo + s.r.Float64()*(hi-lo)
}

func (s *Rand) Weighted(weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, ErrNoWeight
	}
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, fmt.Errorf("invalid weight at index %d: %v", i, w)
		}
		total += w
	}
	if total <= 0 {
		return 0, ErrNoWeight
	}

	target := s.r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return i, nil
		}
	}
	// Rounding can leave target == total; fall back to the last positive weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, nil
		}
	}
	return 0, ErrNoWeight
}
