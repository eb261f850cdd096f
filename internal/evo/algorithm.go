package evo

import (
	"fmt"

	"flexevo/internal/genotype"
	"flexevo/internal/rng"
)

// Evolver turns one population into the next and reports on the input.
type Evolver[I Individual] interface {
	Name() string
	Evolve(src rng.Source, population []I) ([]I, Statistics, error)
}

// AlgorithmConfig holds the strategy choices shared by both loops.
type AlgorithmConfig struct {
	// GenerationLength is the simulation length of one generation; it bounds
	// the life time handed to replacement individuals.
	GenerationLength int
	Selector         Selector
	Crossover        Crossover
}

func (c AlgorithmConfig) withDefaults() (AlgorithmConfig, error) {
	if c.GenerationLength < 0 {
		return c, fmt.Errorf("generation length must be >= 0")
	}
	if c.Selector == nil {
		c.Selector = RouletteWheelSelection{Floor: DefaultSelectionFloor}
	}
	if c.Crossover == nil {
		c.Crossover = UniformCrossover{}
	}
	return c, nil
}

// GeneticAlgorithm replaces the whole population every generation.
type GeneticAlgorithm[I Individual] struct {
	cfg           AlgorithmConfig
	mutator       Mutator
	newIndividual func(genotype.Genome) I
}

func NewGeneticAlgorithm[I Individual](cfg AlgorithmConfig, mutator Mutator, newIndividual func(genotype.Genome) I) (*GeneticAlgorithm[I], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if mutator == nil {
		return nil, fmt.Errorf("mutator is required")
	}
	if newIndividual == nil {
		return nil, fmt.Errorf("individual constructor is required")
	}
	return &GeneticAlgorithm[I]{cfg: cfg, mutator: mutator, newIndividual: newIndividual}, nil
}

func (a *GeneticAlgorithm[I]) Name() string {
	return "generational"
}

func (a *GeneticAlgorithm[I]) Evolve(src rng.Source, population []I) ([]I, Statistics, error) {
	if len(population) == 0 {
		return nil, Statistics{}, ErrEmptyPopulation
	}
	if src == nil {
		return nil, Statistics{}, fmt.Errorf("random source is required")
	}

	fitness := fitnessOf(population)
	next := make([]I, 0, len(population))
	for range population {
		i, j, err := a.cfg.Selector.Pick(src, fitness)
		if err != nil {
			return nil, Statistics{}, err
		}
		child := a.cfg.Crossover.Crossover(src, population[i].Genome(), population[j].Genome())
		child = a.mutator.Mutate(src, child)
		next = append(next, a.newIndividual(child))
	}

	stats, err := NewStatistics(population)
	if err != nil {
		return nil, Statistics{}, err
	}
	stats.ChangedCount = len(population)
	return next, stats, nil
}
