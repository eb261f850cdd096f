package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexevo/internal/genotype"
	"flexevo/internal/model"
)

func sampleMembers() []model.MemberRecord {
	genome := genotype.Genome{
		{Weight: 0, Layer: 1, Out: 1, In: 0}, {Weight: 1, Layer: 1, Out: 1, In: 1},
		{Weight: 0.25, Layer: 2, Out: 2, In: 0}, {Weight: -0.5, Layer: 2, Out: 2, In: 1},
	}
	return []model.MemberRecord{
		{Genome: genome, Fitness: 1.5, LifeTime: 2, MutForce: 1},
		{Genome: genome.Clone(), Fitness: 0.5, LifeTime: 1, Changed: true, MutForce: 3},
	}
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	older := model.RunRecord{VersionedRecord: CurrentVersion(), ID: "run-a", Scape: "xor", Algorithm: "flex", Seed: 1, StartedAt: base}
	newer := model.RunRecord{VersionedRecord: CurrentVersion(), ID: "run-b", Scape: "sine", Algorithm: "generational", Seed: 2, StartedAt: base.Add(time.Minute)}
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	got, ok, err := store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "xor", got.Scape)
	assert.True(t, got.StartedAt.Equal(base))

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	older.Completed = true
	older.Generations = 7
	require.NoError(t, store.SaveRun(ctx, older))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)
	assert.True(t, runs[1].Completed)
	assert.Equal(t, 7, runs[1].Generations)

	for gen := 1; gen <= 3; gen++ {
		require.NoError(t, store.SavePopulation(ctx, model.PopulationSnapshot{
			VersionedRecord: CurrentVersion(),
			ID:              fmt.Sprintf("run-a-gen-%d", gen),
			RunID:           "run-a",
			Generation:      gen,
			Members:         sampleMembers(),
		}))
	}

	snapshot, ok, err := store.GetPopulation(ctx, "run-a-gen-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snapshot.Generation)
	require.Len(t, snapshot.Members, 2)
	assert.Equal(t, sampleMembers()[1], snapshot.Members[1])

	latest, ok, err := store.LatestPopulation(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, latest.Generation)

	_, ok, err = store.LatestPopulation(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, ok)

	generations := []model.GenerationRecord{
		{Generation: 1, MinFitness: 0.1, MaxFitness: 0.9, Shapes: []string{"2.1."}},
		{Generation: 2, MinFitness: 0.2, MaxFitness: 1.1, ChangedCount: 3, Shapes: []string{"2.1.", "2.2.1."}},
	}
	require.NoError(t, store.SaveGenerations(ctx, "run-a", generations))
	loaded, ok, err := store.GetGenerations(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, generations, loaded)

	_, ok, err = store.GetGenerations(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, ok)
}
