package evo

import (
	"flexevo/internal/genotype"
	"flexevo/internal/rng"
)

// Crossover recombines two genomes into one child.
type Crossover interface {
	Name() string
	Crossover(src rng.Source, a, b genotype.Genome) genotype.Genome
}

// UniformCrossover keeps the topology of a randomly chosen base parent and
// takes each shared gene's value from either parent with equal odds. Keys
// present only in the other parent are never inherited.
type UniformCrossover struct{}

func (UniformCrossover) Name() string {
	return "uniform"
}

func (UniformCrossover) Crossover(src rng.Source, a, b genotype.Genome) genotype.Genome {
	base, other := a, b
	if !src.Bool(0.5) {
		base, other = b, a
	}

	index := other.Keys()
	child := make(genotype.Genome, 0, len(base))
	for _, gene := range base {
		if i, ok := index[gene.Key()]; ok && src.Bool(0.5) {
			gene.Weight = other[i].Weight
		}
		child = append(child, gene)
	}
	return child
}
