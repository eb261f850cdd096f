package flexevo

import (
	"github.com/pkg/errors"

	"flexevo/internal/evo"
	"flexevo/internal/genotype"
	"flexevo/internal/rng"
)

// Core types for simulations that own their individuals and only need the
// genetic operators.
type (
	Gene            = genotype.Gene
	Genome          = genotype.Genome
	Topology        = genotype.Topology
	Source          = rng.Source
	Statistics      = evo.Statistics
	Individual      = evo.Individual
	FlexIndividual  = evo.FlexIndividual
	Offspring       = evo.Offspring
	MutForce        = evo.MutForce
	AlgorithmConfig = evo.AlgorithmConfig
	FlexMutation    = evo.FlexMutation
)

const (
	ForceNone    = evo.ForceNone
	ForceWeights = evo.ForceWeights
	ForceNeurons = evo.ForceNeurons
	ForceLayers  = evo.ForceLayers
)

var (
	ErrEmptyPopulation = evo.ErrEmptyPopulation
	ErrCorruptTopology = evo.ErrCorruptTopology
)

func NewSource(seed int64) Source {
	return rng.New(seed)
}

func Decode(genome Genome) Topology {
	return genotype.Decode(genome)
}

func NewLayeredGenome(src Source, inputs int, hidden []int, outputs int) (Genome, error) {
	return genotype.NewLayered(src, inputs, hidden, outputs)
}

func NewStatistics[I Individual](population []I) (Statistics, error) {
	return evo.NewStatistics(population)
}

// NewGenerationalAlgorithm replaces the whole population each generation,
// mutating children with weight-only mutation.
func NewGenerationalAlgorithm[I Individual](cfg AlgorithmConfig, chance, coeff float64, newIndividual func(Genome) I) (*evo.GeneticAlgorithm[I], error) {
	mutator, err := evo.NewWeightMutation(chance, coeff)
	if err != nil {
		return nil, err
	}
	return evo.NewGeneticAlgorithm(cfg, mutator, newIndividual)
}

// NewFlexMutation returns the flex mutator with default structural chances
// and the input toggle off. Its chance fields can be changed before it is
// handed to NewFlexAlgorithm. eyeCells bounds the input toggle; zero disables
// it.
func NewFlexMutation(chance, coeff float64, eyeCells int) (*FlexMutation, error) {
	return evo.NewFlexMutation(chance, coeff, eyeCells)
}

// NewFlexAlgorithm replaces individuals as their life time runs out and
// applies flex structural mutation.
func NewFlexAlgorithm[I FlexIndividual](cfg AlgorithmConfig, mutation *FlexMutation, newIndividual func(Offspring) I) (*evo.FlexAlgorithm[I], error) {
	if mutation == nil {
		return nil, errors.New("flex mutation is required")
	}
	return evo.NewFlexAlgorithm(cfg, mutation, newIndividual)
}
