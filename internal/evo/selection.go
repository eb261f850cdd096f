package evo

import (
	"fmt"
	"math"

	"flexevo/internal/rng"
)

// DefaultSelectionFloor keeps zero or negative fitness selectable.
const DefaultSelectionFloor = 1e-5

// Selector draws two parent indices from a population's fitness values.
type Selector interface {
	Name() string
	Pick(src rng.Source, fitness []float64) (int, int, error)
}

// RouletteWheelSelection draws each parent independently with probability
// proportional to max(fitness, Floor). The same index may be drawn twice.
type RouletteWheelSelection struct {
	Floor float64
}

func (RouletteWheelSelection) Name() string {
	return "roulette_wheel"
}

func (s RouletteWheelSelection) Pick(src rng.Source, fitness []float64) (int, int, error) {
	if len(fitness) == 0 {
		return 0, 0, ErrEmptyPopulation
	}
	if src == nil {
		return 0, 0, fmt.Errorf("random source is required")
	}

	weights := make([]float64, len(fitness))
	for i, f := range fitness {
		if math.IsNaN(f) {
			f = 0
		}
		weights[i] = math.Max(f, s.Floor)
	}

	a, err := src.Weighted(weights)
	if err != nil {
		return 0, 0, fmt.Errorf("select first parent: %w", err)
	}
	b, err := src.Weighted(weights)
	if err != nil {
		return 0, 0, fmt.Errorf("select second parent: %w", err)
	}
	return a, b, nil
}
