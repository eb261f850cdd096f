package evo

import (
	"fmt"

	"flexevo/internal/genotype"
	"flexevo/internal/rng"
)

// Mutator perturbs a single genome. Structure is preserved.
type Mutator interface {
	Name() string
	Mutate(src rng.Source, genome genotype.Genome) genotype.Genome
}

// WeightMutation shifts each weight, with probability Chance, by a signed
// uniform step of at most Coeff.
type WeightMutation struct {
	Chance float64
	Coeff  float64
}

func NewWeightMutation(chance, coeff float64) (WeightMutation, error) {
	if chance < 0 || chance > 1 {
		return WeightMutation{}, fmt.Errorf("mutation chance must be in [0, 1]: %v", chance)
	}
	return WeightMutation{Chance: chance, Coeff: coeff}, nil
}

func (WeightMutation) Name() string {
	return "weight"
}

func (m WeightMutation) Mutate(src rng.Source, genome genotype.Genome) genotype.Genome {
	mutated := genome.Clone()
	for i := range mutated {
		mutated[i].Weight = m.perturb(src, mutated[i].Weight)
	}
	return mutated
}

func (m WeightMutation) perturb(src rng.Source, weight float64) float64 {
	if !src.Bool(m.Chance) {
		return weight
	}
	sign := 1.0
	if src.Bool(0.5) {
		sign = -1.0
	}
	return weight + sign*m.Coeff*src.Float64()
}
