package evo

import (
	"sort"

	"flexevo/internal/genotype"
)

type testIndividual struct {
	fitness  float64
	genome   genotype.Genome
	lifeTime int
	changed  bool
	force    MutForce
}

func (i testIndividual) Fitness() float64 { return i.fitness }
func (i testIndividual) Genome() genotype.Genome { return i.genome }
func (i testIndividual) LifeTime() int { return i.lifeTime }
func (i testIndividual) Changed() bool { return i.changed }
func (i testIndividual) MutForce() MutForce { return i.force }

func newTestIndividual(g genotype.Genome) testIndividual {
	return testIndividual{genome: g}
}

func newTestFlexIndividual(off Offspring) testIndividual {
	return testIndividual{genome: off.Genome, lifeTime: off.LifeTime, changed: off.Changed, force: off.MutForce}
}

func withFitness(values ...float64) []testIndividual {
	out := make([]testIndividual, len(values))
	for i, v := range values {
		out[i] = testIndividual{fitness: v, genome: threeLayerGenome()}
	}
	return out
}

// threeLayerGenome: inputs {1,2}, hidden {3}, output {4}.
func threeLayerGenome() genotype.Genome {
	return genotype.Genome{
		{Weight: 0.0, Layer: 1, Out: 1, In: 0}, {Weight: 1.0, Layer: 1, Out: 1, In: 1},
		{Weight: 0.0, Layer: 1, Out: 2, In: 0}, {Weight: 1.0, Layer: 1, Out: 2, In: 2},
		{Weight: 0.1, Layer: 2, Out: 3, In: 0}, {Weight: 0.2, Layer: 2, Out: 3, In: 1}, {Weight: 0.3, Layer: 2, Out: 3, In: 2},
		{Weight: 0.4, Layer: 3, Out: 4, In: 0}, {Weight: 0.5, Layer: 3, Out: 4, In: 3},
	}
}

// fiveLayerGenome: inputs {1,2}, hidden {3,4}, {5}, {6,7}, output {8}.
func fiveLayerGenome() genotype.Genome {
	return genotype.Genome{
		{Weight: 0, Layer: 1, Out: 1, In: 0}, {Weight: 1, Layer: 1, Out: 1, In: 1},
		{Weight: 0, Layer: 1, Out: 2, In: 0}, {Weight: 1, Layer: 1, Out: 2, In: 2},
		{Weight: 0.1, Layer: 2, Out: 3, In: 0}, {Weight: 0.1, Layer: 2, Out: 3, In: 1}, {Weight: 0.1, Layer: 2, Out: 3, In: 2},
		{Weight: 0.2, Layer: 2, Out: 4, In: 0}, {Weight: 0.2, Layer: 2, Out: 4, In: 1}, {Weight: 0.2, Layer: 2, Out: 4, In: 2},
		{Weight: 0.3, Layer: 3, Out: 5, In: 0}, {Weight: 0.3, Layer: 3, Out: 5, In: 3}, {Weight: 0.3, Layer: 3, Out: 5, In: 4},
		{Weight: 0.4, Layer: 4, Out: 6, In: 0}, {Weight: 0.4, Layer: 4, Out: 6, In: 5},
		{Weight: 0.5, Layer: 4, Out: 7, In: 0}, {Weight: 0.5, Layer: 4, Out: 7, In: 5},
		{Weight: 0.6, Layer: 5, Out: 8, In: 0}, {Weight: 0.6, Layer: 5, Out: 8, In: 6}, {Weight: 0.6, Layer: 5, Out: 8, In: 7},
	}
}

func keySet(g genotype.Genome) []genotype.Key {
	keys := make([]genotype.Key, 0, len(g))
	for _, gene := range g {
		keys = append(keys, gene.Key())
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		if a.Out != b.Out {
			return a.Out < b.Out
		}
		return a.In < b.In
	})
	return keys
}
