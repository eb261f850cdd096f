package storage

import (
	"context"

	"flexevo/internal/model"
)

// Store persists runs, their per-generation statistics and population
// snapshots. Getters report a missing record with ok == false, not an error.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every run, most recently started first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulation(ctx context.Context, id string) (model.PopulationSnapshot, bool, error)
	// LatestPopulation returns the snapshot with the highest generation of a run.
	LatestPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error)
	SaveGenerations(ctx context.Context, runID string, generations []model.GenerationRecord) error
	GetGenerations(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
}
