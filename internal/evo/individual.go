package evo

import (
	"errors"

	"flexevo/internal/genotype"
)

var (
	ErrEmptyPopulation = errors.New("empty population")
	ErrCorruptTopology = errors.New("corrupt topology")
)

// Individual is what selection, crossover and statistics need from a
// population member.
type Individual interface {
	Fitness() float64
	Genome() genotype.Genome
}

// FlexIndividual adds the life-time replacement state.
type FlexIndividual interface {
	Individual
	LifeTime() int
	Changed() bool
	MutForce() MutForce
}

// MutForce gates which mutation phases touch an individual.
type MutForce int

const (
	ForceNone MutForce = iota
	ForceWeights
	ForceNeurons
	ForceLayers
)

func (f MutForce) String() string {
	switch f {
	case ForceNone:
		return "none"
	case ForceWeights:
		return "weights"
	case ForceNeurons:
		return "neurons"
	case ForceLayers:
		return "layers"
	default:
		return "unknown"
	}
}

// Offspring is the mutable draft of a next-generation slot. The flex loop
// fills it, the structural mutator edits it, and only then is it turned into
// an Individual.
type Offspring struct {
	Genome   genotype.Genome
	LifeTime int
	Changed  bool
	MutForce MutForce
}

func fitnessOf[I Individual](population []I) []float64 {
	fitness := make([]float64, len(population))
	for i, individual := range population {
		fitness[i] = individual.Fitness()
	}
	return fitness
}
