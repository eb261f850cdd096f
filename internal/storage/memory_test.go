package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexevo/internal/model"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	exerciseStore(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.SaveRun(ctx, model.RunRecord{VersionedRecord: CurrentVersion(), ID: "r"})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = store.ListRuns(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestMemoryStoreDoesNotShareMembers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	members := sampleMembers()
	require.NoError(t, store.SavePopulation(ctx, model.PopulationSnapshot{
		VersionedRecord: CurrentVersion(),
		ID:              "p",
		RunID:           "r",
		Members:         members,
	}))
	members[0].Genome[0].Weight = 99

	snapshot, ok, err := store.GetPopulation(ctx, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, snapshot.Members[0].Genome[0].Weight)
}
