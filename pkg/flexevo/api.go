// Package flexevo is the embeddable entry point: it runs evolutions and reads
// back runs, generation statistics and populations from the configured store
// and artifacts directory.
package flexevo

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"flexevo/internal/config"
	"flexevo/internal/model"
	"flexevo/internal/platform"
	"flexevo/internal/stats"
	"flexevo/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "flexevo.db"
)

type (
	Config           = config.Config
	GenerationRecord = model.GenerationRecord
	RankedMember     = stats.RankedMember
)

var (
	ErrNoRuns      = errors.New("no runs available")
	ErrRunNotFound = platform.ErrRunNotFound
)

func DefaultConfig() Config {
	return config.Default()
}

func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	OnGeneration func(runID string, record GenerationRecord)
}

type Client struct {
	store storage.Store
	polis *platform.Polis

	artifactsDir string
	exportsDir   string
	logger       *slog.Logger
	onGeneration func(string, model.GenerationRecord)
}

type RunSummary struct {
	RunID            string
	ParentRunID      string
	ArtifactsDir     string
	BestByGeneration []float64
	FinalBestFitness float64
	Completed        bool
}

type RunItem struct {
	RunID            string
	ParentRunID      string
	Scape            string
	Algorithm        string
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
	StartedAt        string
	Completed        bool
}

// RunRef names a run directly or asks for the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		logger:       logger,
		onGeneration: opts.OnGeneration,
	}, nil
}

func (c *Client) Close() error {
	if c.polis != nil {
		c.polis.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Run evolves a population as configured. An interrupted run still returns
// its summary along with the error.
func (c *Client) Run(ctx context.Context, cfg Config) (RunSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	result, err := p.RunEvolution(ctx, cfg)
	summary := RunSummary{
		RunID:            result.RunID,
		ParentRunID:      result.ParentRunID,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: result.BestFinalFitness,
		Completed:        result.Completed,
	}
	if result.ArtifactsPath != "" {
		summary.ArtifactsDir = filepath.Clean(result.ArtifactsPath)
	}
	return summary, err
}

// Stop cancels a run started by this client.
func (c *Client) Stop(runID string) error {
	if c.polis == nil {
		return errors.Wrap(ErrRunNotFound, runID)
	}
	return c.polis.StopRun(runID)
}

// Runs lists runs newest first. Runs come from the store; when it holds none
// (a fresh memory store) the artifacts run index is used.
func (c *Client) Runs(ctx context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]RunItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunItem{
			RunID:            r.ID,
			ParentRunID:      r.ParentRunID,
			Scape:            r.Scape,
			Algorithm:        r.Algorithm,
			Seed:             r.Seed,
			Population:       r.PopulationSize,
			Generations:      r.Generations,
			FinalBestFitness: r.BestFitness,
			StartedAt:        r.StartedAt.Format(time.RFC3339),
			Completed:        r.Completed,
		})
	}
	if len(items) == 0 {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			items = append(items, RunItem{
				RunID:            e.RunID,
				Scape:            e.Scape,
				Algorithm:        e.Algorithm,
				Seed:             e.Seed,
				Population:       e.PopulationSize,
				Generations:      e.Generations,
				FinalBestFitness: e.FinalBestFitness,
				StartedAt:        e.CreatedAtUTC,
				Completed:        true,
			})
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Generations returns the per-generation statistics of a run, from the store
// or else from its artifacts.
func (c *Client) Generations(ctx context.Context, ref RunRef) ([]GenerationRecord, error) {
	runID, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	generations, ok, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return generations, nil
	}
	generations, ok, err = stats.ReadGenerations(c.artifactsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrRunNotFound, runID)
	}
	return generations, nil
}

// Population returns the latest stored population of a run, best first.
func (c *Client) Population(ctx context.Context, ref RunRef, limit int) ([]RankedMember, error) {
	runID, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	snapshot, ok, err := c.store.LatestPopulation(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrRunNotFound, "no population for %s", runID)
	}
	ranked := stats.RankMembers(snapshot.Members)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolve(ctx, req.RunRef)
	if err != nil {
		return ExportSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	exported, err := stats.ExportRunArtifacts(c.artifactsDir, runID, outDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exported)}, nil
}

func (c *Client) resolve(ctx context.Context, ref RunRef) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if ref.RunID != "" {
		return ref.RunID, nil
	}
	if !ref.Latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.Runs(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[0].RunID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{
		Store:        c.store,
		ArtifactsDir: c.artifactsDir,
		Logger:       c.logger,
		OnGeneration: c.onGeneration,
	})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}
