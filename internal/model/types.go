package model

import (
	"time"

	"flexevo/internal/genotype"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one evolution run. A continued run points at the run
// whose final population it started from.
type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	ParentRunID    string    `json:"parent_run_id,omitempty"`
	Scape          string    `json:"scape"`
	Algorithm      string    `json:"algorithm"`
	Seed           int64     `json:"seed"`
	PopulationSize int       `json:"population_size"`
	Generations    int       `json:"generations"`
	BestFitness    float64   `json:"best_fitness"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Completed      bool      `json:"completed"`
}

// MemberRecord is one persisted individual.
type MemberRecord struct {
	Genome   genotype.Genome `json:"genome"`
	Fitness  float64         `json:"fitness"`
	LifeTime int             `json:"life_time"`
	Changed  bool            `json:"changed"`
	MutForce int             `json:"mut_force"`
}

// PopulationSnapshot freezes a population at the end of a generation.
type PopulationSnapshot struct {
	VersionedRecord
	ID         string         `json:"id"`
	RunID      string         `json:"run_id"`
	Generation int            `json:"generation"`
	Members    []MemberRecord `json:"members"`
}

// GenerationRecord is the per-generation statistics row of a run.
type GenerationRecord struct {
	Generation    int      `json:"generation"`
	MinFitness    float64  `json:"min_fitness"`
	MaxFitness    float64  `json:"max_fitness"`
	AvgFitness    float64  `json:"avg_fitness"`
	MedianFitness float64  `json:"median_fitness"`
	StdDevFitness float64  `json:"std_dev_fitness"`
	ChangedCount  int      `json:"changed_count"`
	Shapes        []string `json:"shapes"`
	MaxNeuronID   int      `json:"max_neuron_id"`
}
