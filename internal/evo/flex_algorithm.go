package evo

import (
	"fmt"

	"flexevo/internal/rng"
)

// lifeTimeScale converts generation length into the upper bound of a fresh
// life time.
const lifeTimeScale = 500

// FlexAlgorithm replaces individuals one by one when their life time runs
// out. Fitness bands decide how fast life time drains and how hard the
// replacement is mutated:
//
//	bottom quarter  life-1, ForceLayers
//	second quarter  life-1, ForceNeurons
//	third quarter   life-1, ForceWeights
//	top quarter     life kept, ForceNone
type FlexAlgorithm[I FlexIndividual] struct {
	cfg           AlgorithmConfig
	mutator       FlexMutator
	newIndividual func(Offspring) I
}

func NewFlexAlgorithm[I FlexIndividual](cfg AlgorithmConfig, mutator FlexMutator, newIndividual func(Offspring) I) (*FlexAlgorithm[I], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if mutator == nil {
		return nil, fmt.Errorf("flex mutator is required")
	}
	if newIndividual == nil {
		return nil, fmt.Errorf("individual constructor is required")
	}
	return &FlexAlgorithm[I]{cfg: cfg, mutator: mutator, newIndividual: newIndividual}, nil
}

func (a *FlexAlgorithm[I]) Name() string {
	return "flex"
}

// MaxLifeTime is the upper bound of a fresh life time.
func (a *FlexAlgorithm[I]) MaxLifeTime() int {
	return max(1, a.cfg.GenerationLength/lifeTimeScale)
}

func (a *FlexAlgorithm[I]) Evolve(src rng.Source, population []I) ([]I, Statistics, error) {
	if len(population) == 0 {
		return nil, Statistics{}, ErrEmptyPopulation
	}
	if src == nil {
		return nil, Statistics{}, fmt.Errorf("random source is required")
	}

	stats, err := NewStatistics(population)
	if err != nil {
		return nil, Statistics{}, err
	}
	q1, q2, q3 := stats.quartiles()
	fitness := fitnessOf(population)

	drafts := make([]Offspring, len(population))
	changed := 0
	for j, parent := range population {
		f := parent.Fitness()
		lifeTime := parent.LifeTime()
		var force MutForce
		switch {
		case f < q1:
			lifeTime--
			force = ForceLayers
		case f < q2:
			lifeTime--
			force = ForceNeurons
		case f < q3:
			lifeTime--
			force = ForceWeights
		default:
			force = ForceNone
		}

		// An individual entering its last generation is replaced whatever
		// its band.
		if lifeTime > 0 && parent.LifeTime() > 1 {
			drafts[j] = Offspring{
				Genome:   parent.Genome().Clone(),
				LifeTime: lifeTime,
				MutForce: force,
			}
			continue
		}

		i, k, err := a.cfg.Selector.Pick(src, fitness)
		if err != nil {
			return nil, Statistics{}, err
		}
		child := a.cfg.Crossover.Crossover(src, population[i].Genome(), population[k].Genome())
		drafts[j] = Offspring{
			Genome:   child,
			LifeTime: src.IntRange(1, a.MaxLifeTime()),
			Changed:  true,
			MutForce: force,
		}
		changed++
	}

	if err := a.mutator.MutatePopulation(src, drafts); err != nil {
		return nil, Statistics{}, fmt.Errorf("mutate population: %w", err)
	}

	next := make([]I, len(drafts))
	for j, draft := range drafts {
		next[j] = a.newIndividual(draft)
	}
	stats.ChangedCount = changed
	return next, stats, nil
}
