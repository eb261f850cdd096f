package evo

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Statistics summarizes one population. It is computed once per generation
// and never updated afterwards.
type Statistics struct {
	MinFitness    float64  `json:"min_fitness"`
	MaxFitness    float64  `json:"max_fitness"`
	AvgFitness    float64  `json:"avg_fitness"`
	MedianFitness float64  `json:"median_fitness"`
	StdDevFitness float64  `json:"std_dev_fitness"`
	ChangedCount  int      `json:"changed_count"`
	Shapes        []string `json:"shapes"`
	MaxNeuronID   int      `json:"max_neuron_id"`
}

func NewStatistics[I Individual](population []I) (Statistics, error) {
	if len(population) == 0 {
		return Statistics{}, ErrEmptyPopulation
	}

	fitness := fitnessOf(population)
	sort.Float64s(fitness)
	n := len(fitness)

	median := fitness[n/2]
	if n%2 == 0 {
		median = (fitness[n/2-1] + fitness[n/2]) / 2
	}
	stdDev := 0.0
	if n > 1 {
		stdDev = stat.PopStdDev(fitness, nil)
	}

	shapes := make(map[string]struct{})
	maxID := 0
	for _, individual := range population {
		genome := individual.Genome()
		shapes[genome.ShapeSignature()] = struct{}{}
		if id := genome.MaxNeuronID(); id > maxID {
			maxID = id
		}
	}
	shapeList := make([]string, 0, len(shapes))
	for shape := range shapes {
		shapeList = append(shapeList, shape)
	}
	sort.Strings(shapeList)

	return Statistics{
		MinFitness:    fitness[0],
		MaxFitness:    fitness[n-1],
		AvgFitness:    stat.Mean(fitness, nil),
		MedianFitness: median,
		StdDevFitness: stdDev,
		Shapes:        shapeList,
		MaxNeuronID:   maxID,
	}, nil
}

// quartiles splits [min, max] into four equal bands and returns the three
// inner bounds.
func (s Statistics) quartiles() (q1, q2, q3 float64) {
	span := s.MaxFitness - s.MinFitness
	return s.MinFitness + span/4, s.MinFitness + span/2, s.MinFitness + 3*span/4
}
