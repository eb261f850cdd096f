package platform

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexevo/internal/config"
	"flexevo/internal/evo"
	"flexevo/internal/genotype"
	"flexevo/internal/model"
	"flexevo/internal/scape"
	"flexevo/internal/stats"
	"flexevo/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPolis(t *testing.T, cfg Config) (*Polis, storage.Store) {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
	}
	cfg.Logger = quietLogger()
	p := NewPolis(cfg)
	require.NoError(t, p.Init(context.Background()))
	return p, cfg.Store
}

func smallConfig(runID string) config.Config {
	cfg := config.Default()
	cfg.Run.RunID = runID
	cfg.Run.Population = 8
	cfg.Run.Generations = 4
	cfg.Run.Workers = 3
	cfg.Run.Seed = 42
	cfg.Evolution.GenerationLength = 1500
	cfg.Mutation.InputChance = 0.2
	return cfg
}

func TestRunEvolutionFlexPersistsRun(t *testing.T) {
	artifacts := t.TempDir()
	p, store := newTestPolis(t, Config{ArtifactsDir: artifacts})
	ctx := context.Background()

	result, err := p.RunEvolution(ctx, smallConfig("flex-run"))
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, "flex-run", result.RunID)
	require.Len(t, result.Generations, 4)
	require.Len(t, result.BestByGeneration, 4)
	require.Len(t, result.FinalPopulation, 8)
	for i, rec := range result.Generations {
		assert.Equal(t, i+1, rec.Generation)
		assert.LessOrEqual(t, rec.MinFitness, rec.MaxFitness)
		assert.NotEmpty(t, rec.Shapes)
		assert.Positive(t, rec.MaxNeuronID)
	}
	assert.Equal(t, result.FinalPopulation[0].Fitness, result.BestFinalFitness)
	for _, member := range result.FinalPopulation {
		assert.LessOrEqual(t, member.Fitness, result.BestFinalFitness)
		assert.NoError(t, member.Genome.Validate())
	}

	run, ok, err := store.GetRun(ctx, "flex-run")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, run.Completed)
	assert.Equal(t, 8, run.PopulationSize)
	assert.Equal(t, result.BestFinalFitness, run.BestFitness)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	snapshot, ok, err := store.LatestPopulation(ctx, "flex-run")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, snapshot.Generation)
	assert.Len(t, snapshot.Members, 8)

	generations, ok, err := store.GetGenerations(ctx, "flex-run")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, generations, 4)

	assert.Equal(t, filepath.Join(artifacts, "flex-run"), result.ArtifactsPath)
	_, err = os.Stat(filepath.Join(result.ArtifactsPath, "generations.csv"))
	assert.NoError(t, err)
	index, err := stats.ListRunIndex(artifacts)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "flex-run", index[0].RunID)
	assert.Empty(t, p.ActiveRuns())
}

func TestRunEvolutionGenerational(t *testing.T) {
	p, _ := newTestPolis(t, Config{})
	cfg := smallConfig("")
	cfg.Run.Algorithm = evo.AlgorithmGenerational
	cfg.Run.Scape = "sine"

	result, err := p.RunEvolution(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID, "run id is generated")
	assert.Empty(t, result.ArtifactsPath)
	require.Len(t, result.Generations, 4)
	for _, rec := range result.Generations {
		assert.Equal(t, 8, rec.ChangedCount)
	}
}

func TestRunEvolutionContinuesFromParent(t *testing.T) {
	p, store := newTestPolis(t, Config{})
	ctx := context.Background()

	_, err := p.RunEvolution(ctx, smallConfig("parent"))
	require.NoError(t, err)

	child := smallConfig("child")
	child.Run.ContinueFrom = "parent"
	child.Run.Population = 20
	result, err := p.RunEvolution(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, "parent", result.ParentRunID)
	assert.Len(t, result.FinalPopulation, 8, "population size comes from the snapshot")

	run, ok, err := store.GetRun(ctx, "child")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "parent", run.ParentRunID)

	missing := smallConfig("orphan")
	missing.Run.ContinueFrom = "nobody"
	_, err = p.RunEvolution(ctx, missing)
	assert.True(t, errors.Is(err, ErrRunNotFound), "got %v", err)
}

func TestRunEvolutionStopsBetweenGenerations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, store := newTestPolis(t, Config{
		OnGeneration: func(_ string, rec model.GenerationRecord) {
			if rec.Generation == 2 {
				cancel()
			}
		},
	})

	cfg := smallConfig("stopped")
	cfg.Run.Generations = 10
	result, err := p.RunEvolution(ctx, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.False(t, result.Completed)
	assert.Len(t, result.Generations, 2)

	run, ok, err := store.GetRun(context.Background(), "stopped")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, run.Completed)
	snapshot, ok, err := store.LatestPopulation(context.Background(), "stopped")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snapshot.Generation)
}

func TestRunEvolutionRejectsDuplicatesAndBadState(t *testing.T) {
	p, _ := newTestPolis(t, Config{})
	ctx := context.Background()

	cfg := smallConfig("dup")
	cfg.Run.Generations = 1
	_, err := p.RunEvolution(ctx, cfg)
	require.NoError(t, err)
	_, err = p.RunEvolution(ctx, cfg)
	assert.True(t, errors.Is(err, ErrRunExists), "got %v", err)

	bad := smallConfig("bad")
	bad.Run.Population = 0
	_, err = p.RunEvolution(ctx, bad)
	assert.Error(t, err)

	assert.True(t, errors.Is(p.StopRun("nope"), ErrRunNotFound))

	p.Stop()
	_, err = p.RunEvolution(ctx, smallConfig("after-stop"))
	assert.True(t, errors.Is(err, ErrNotInitialized), "got %v", err)
	assert.ErrorIs(t, p.RegisterScape(scape.XORScape{}), ErrNotInitialized)
}

func TestPolisScapeRegistry(t *testing.T) {
	p := NewPolis(Config{Logger: quietLogger()})
	assert.Error(t, p.Init(context.Background()), "store is required")

	p, _ = newTestPolis(t, Config{})
	s, ok := p.GetScape("xor")
	require.True(t, ok)
	assert.Equal(t, 2, s.Inputs())

	assert.Error(t, p.RegisterScape(nil))
	require.NoError(t, p.RegisterScape(scape.SineRegressionScape{Samples: 5}))
	_, ok = p.GetScape("sine")
	assert.True(t, ok)
}

func TestAgentLifecycle(t *testing.T) {
	member := model.MemberRecord{
		Genome: genotype.Genome{
			{Weight: 0, Layer: 1, Out: 1, In: 0}, {Weight: 1, Layer: 1, Out: 1, In: 1},
			{Weight: 0, Layer: 1, Out: 2, In: 0}, {Weight: 1, Layer: 1, Out: 2, In: 2},
			{Weight: 0.1, Layer: 2, Out: 3, In: 0}, {Weight: 0.5, Layer: 2, Out: 3, In: 1}, {Weight: 0.5, Layer: 2, Out: 3, In: 2},
		},
		Fitness:  1.5,
		LifeTime: 3,
		Changed:  true,
		MutForce: int(evo.ForceNeurons),
	}
	agent := agentFromMember(member, "tanh")
	assert.Equal(t, 3, agent.LifeTime())
	assert.Equal(t, evo.ForceNeurons, agent.MutForce())
	assert.True(t, agent.Changed())

	_, err := agent.RunStep(context.Background(), []float64{0, 1})
	assert.Error(t, err, "uncompiled agent")

	require.NoError(t, agent.evaluate(context.Background(), scape.XORScape{}))
	assert.GreaterOrEqual(t, agent.Fitness(), 0.0)
	assert.LessOrEqual(t, agent.Fitness(), 4.0)

	rec := agent.record()
	assert.Equal(t, member.Genome, rec.Genome)
	rec.Genome[0].Weight = 9
	assert.NotEqual(t, 9.0, agent.Genome()[0].Weight, "records do not alias the agent genome")
}
