package evo

import (
	"errors"
	"testing"

	"flexevo/internal/rng"
)

type recordingMutator struct {
	seen []Offspring
	err  error
}

func (m *recordingMutator) Name() string { return "recording" }

func (m *recordingMutator) MutatePopulation(_ rng.Source, population []Offspring) error {
	m.seen = append([]Offspring(nil), population...)
	return m.err
}

func withLifeTime(lifeTime int, values ...float64) []testIndividual {
	out := withFitness(values...)
	for i := range out {
		out[i].lifeTime = lifeTime
	}
	return out
}

func TestGeneticAlgorithmReplacesWholePopulation(t *testing.T) {
	mutator, err := NewWeightMutation(0.5, 0.2)
	if err != nil {
		t.Fatalf("mutation: %v", err)
	}
	algo, err := NewGeneticAlgorithm(AlgorithmConfig{}, mutator, newTestIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}
	population := withFitness(1, 2, 3, 4, 5)
	next, stats, err := algo.Evolve(rng.New(11), population)
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if len(next) != len(population) {
		t.Fatalf("unexpected population size: %d", len(next))
	}
	if stats.ChangedCount != len(population) {
		t.Fatalf("unexpected changed count: %d", stats.ChangedCount)
	}
	if stats.MinFitness != 1 || stats.MaxFitness != 5 {
		t.Fatalf("statistics should describe the input population: %+v", stats)
	}
	for i, individual := range next {
		if err := individual.Genome().Validate(); err != nil {
			t.Fatalf("child %d invalid: %v", i, err)
		}
	}
}

func TestGeneticAlgorithmEmptyPopulation(t *testing.T) {
	algo, err := NewGeneticAlgorithm(AlgorithmConfig{}, WeightMutation{}, newTestIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}
	if _, _, err := algo.Evolve(rng.New(1), nil); !errors.Is(err, ErrEmptyPopulation) {
		t.Fatalf("expected ErrEmptyPopulation, got %v", err)
	}
}

func TestFlexAlgorithmAssignsQuartileForces(t *testing.T) {
	mutator := &recordingMutator{}
	algo, err := NewFlexAlgorithm(AlgorithmConfig{GenerationLength: 2000}, mutator, newTestFlexIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}
	next, stats, err := algo.Evolve(rng.New(12), withLifeTime(5, 0, 30, 60, 100))
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}

	wantForce := []MutForce{ForceLayers, ForceNeurons, ForceWeights, ForceNone}
	wantLife := []int{4, 4, 4, 5}
	for i, individual := range next {
		if individual.MutForce() != wantForce[i] {
			t.Fatalf("individual %d: force=%s want=%s", i, individual.MutForce(), wantForce[i])
		}
		if individual.LifeTime() != wantLife[i] {
			t.Fatalf("individual %d: life=%d want=%d", i, individual.LifeTime(), wantLife[i])
		}
		if individual.Changed() {
			t.Fatalf("individual %d should have been kept", i)
		}
	}
	if stats.ChangedCount != 0 {
		t.Fatalf("unexpected changed count: %d", stats.ChangedCount)
	}
	if len(mutator.seen) != 4 {
		t.Fatalf("mutator should see every draft, saw %d", len(mutator.seen))
	}
}

func TestFlexAlgorithmReplacesExpiredIndividuals(t *testing.T) {
	mutator := &recordingMutator{}
	algo, err := NewFlexAlgorithm(AlgorithmConfig{GenerationLength: 2000}, mutator, newTestFlexIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}
	if algo.MaxLifeTime() != 4 {
		t.Fatalf("unexpected max life time: %d", algo.MaxLifeTime())
	}

	population := withLifeTime(1, 1, 2, 3, 4)
	next, stats, err := algo.Evolve(rng.New(13), population)
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	for i, individual := range next {
		if !individual.Changed() {
			t.Fatalf("individual %d with life time 1 should be replaced", i)
		}
		if lt := individual.LifeTime(); lt < 1 || lt > 4 {
			t.Fatalf("individual %d: fresh life time out of range: %d", i, lt)
		}
	}
	if stats.ChangedCount != len(population) {
		t.Fatalf("unexpected changed count: %d", stats.ChangedCount)
	}
}

func TestFlexAlgorithmKeepsGenomeOfSurvivors(t *testing.T) {
	algo, err := NewFlexAlgorithm(AlgorithmConfig{}, &recordingMutator{}, newTestFlexIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}
	if algo.MaxLifeTime() != 1 {
		t.Fatalf("short generations should still allow one generation of life: %d", algo.MaxLifeTime())
	}
	population := []testIndividual{
		{fitness: 1, genome: threeLayerGenome(), lifeTime: 3},
		{fitness: 9, genome: fiveLayerGenome(), lifeTime: 3},
	}
	next, _, err := algo.Evolve(rng.New(14), population)
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if next[1].Genome().ShapeSignature() != "2.2.1.2.1." {
		t.Fatalf("survivor genome changed: %s", next[1].Genome().ShapeSignature())
	}
	next[1].Genome()[0].Weight = 42
	if population[1].genome[0].Weight == 42 {
		t.Fatal("survivor shares genome storage with its parent")
	}
}

func TestFlexAlgorithmPropagatesMutatorError(t *testing.T) {
	algo, err := NewFlexAlgorithm(AlgorithmConfig{}, &recordingMutator{err: ErrCorruptTopology}, newTestFlexIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}
	_, _, err = algo.Evolve(rng.New(15), withLifeTime(1, 1, 2))
	if !errors.Is(err, ErrCorruptTopology) {
		t.Fatalf("expected ErrCorruptTopology, got %v", err)
	}
}

func TestFlexAlgorithmWithFlexMutationKeepsGenomesValid(t *testing.T) {
	mutator, err := NewFlexMutation(0.3, 0.5, 1)
	if err != nil {
		t.Fatalf("mutation: %v", err)
	}
	mutator.InputChance = 0.2
	algo, err := NewFlexAlgorithm(AlgorithmConfig{GenerationLength: 1500}, mutator, newTestFlexIndividual)
	if err != nil {
		t.Fatalf("new algorithm: %v", err)
	}

	src := rng.New(16)
	population := withLifeTime(1, 1, 2, 3, 4, 5, 6, 7, 8)
	for gen := 0; gen < 25; gen++ {
		next, _, err := algo.Evolve(src, population)
		if err != nil {
			t.Fatalf("generation %d: %v", gen, err)
		}
		for i := range next {
			if err := next[i].Genome().Validate(); err != nil {
				t.Fatalf("generation %d individual %d: %v", gen, i, err)
			}
			next[i].fitness = float64(len(next[i].Genome())) + float64(i)
		}
		population = next
	}
}

func TestAlgorithmConstructorsValidate(t *testing.T) {
	if _, err := NewGeneticAlgorithm[testIndividual](AlgorithmConfig{}, nil, newTestIndividual); err == nil {
		t.Fatal("expected error for nil mutator")
	}
	if _, err := NewGeneticAlgorithm[testIndividual](AlgorithmConfig{}, WeightMutation{}, nil); err == nil {
		t.Fatal("expected error for nil constructor")
	}
	if _, err := NewFlexAlgorithm[testIndividual](AlgorithmConfig{GenerationLength: -1}, &recordingMutator{}, newTestFlexIndividual); err == nil {
		t.Fatal("expected error for negative generation length")
	}
	if _, err := NewFlexAlgorithm[testIndividual](AlgorithmConfig{}, nil, newTestFlexIndividual); err == nil {
		t.Fatal("expected error for nil mutator")
	}
}
