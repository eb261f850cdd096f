package platform

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"flexevo/internal/config"
	"flexevo/internal/evo"
	"flexevo/internal/genotype"
	"flexevo/internal/model"
	"flexevo/internal/rng"
	"flexevo/internal/scape"
	"flexevo/internal/stats"
	"flexevo/internal/storage"
)

var (
	ErrNotInitialized = errors.New("polis is not initialized")
	ErrRunExists      = errors.New("run already exists")
	ErrRunNotFound    = errors.New("run not found")
)

type Config struct {
	Store storage.Store
	// ArtifactsDir receives per-run artifacts and the run index; empty skips
	// artifact output.
	ArtifactsDir string
	Logger       *slog.Logger
	// OnGeneration, when set, is called after every generation is recorded.
	OnGeneration func(runID string, record model.GenerationRecord)
}

type EvolutionResult struct {
	RunID            string
	ParentRunID      string
	Generations      []model.GenerationRecord
	BestByGeneration []float64
	BestFinalFitness float64
	FinalPopulation  []stats.RankedMember
	ArtifactsPath    string
	Completed        bool
}

// Polis owns the scapes available to runs and the runs in flight.
type Polis struct {
	store        storage.Store
	artifactsDir string
	logger       *slog.Logger
	onGeneration func(string, model.GenerationRecord)

	mu      sync.RWMutex
	scapes  map[string]scape.Scape
	runs    map[string]context.CancelFunc
	started bool
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Polis{
		store:        cfg.Store,
		artifactsDir: cfg.ArtifactsDir,
		logger:       logger,
		onGeneration: cfg.OnGeneration,
		scapes:       make(map[string]scape.Scape),
		runs:         make(map[string]context.CancelFunc),
	}
}

// Init prepares the store and registers every built-in scape.
func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return errors.New("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return errors.Wrap(err, "init store")
	}
	for _, name := range scape.Names() {
		s, err := scape.ByName(name)
		if err != nil {
			return err
		}
		p.scapes[name] = s
	}
	p.started = true
	return nil
}

func (p *Polis) RegisterScape(s scape.Scape) error {
	if s == nil {
		return errors.New("scape is nil")
	}
	if s.Name() == "" {
		return errors.New("scape name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return ErrNotInitialized
	}
	p.scapes[s.Name()] = s
	return nil
}

func (p *Polis) GetScape(name string) (scape.Scape, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.scapes[name]
	return s, ok
}

// ActiveRuns lists the ids of runs in flight, sorted.
func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopRun cancels a run in flight. The run finishes its current generation,
// persists what it has and returns.
func (p *Polis) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return errors.Wrap(ErrRunNotFound, runID)
	}
	cancel()
	return nil
}

// Stop cancels every run in flight and marks the polis stopped.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.started = false
	p.scapes = make(map[string]scape.Scape)
}

// RunEvolution evolves a population on the configured scape and persists the
// run record, generation statistics, final population and artifacts. A
// cancelled context ends the run between generations; the partial run is
// persisted and the context error returned alongside the result.
func (p *Polis) RunEvolution(ctx context.Context, cfg config.Config) (EvolutionResult, error) {
	if err := cfg.Validate(); err != nil {
		return EvolutionResult{}, errors.Wrap(err, "invalid config")
	}

	p.mu.RLock()
	target, ok := p.scapes[cfg.Run.Scape]
	started := p.started
	p.mu.RUnlock()
	if !started {
		return EvolutionResult{}, ErrNotInitialized
	}
	if !ok {
		return EvolutionResult{}, errors.Errorf("scape not registered: %s", cfg.Run.Scape)
	}

	runID := cfg.Run.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	if _, exists, err := p.store.GetRun(ctx, runID); err != nil {
		return EvolutionResult{}, errors.Wrap(err, "lookup run")
	} else if exists {
		return EvolutionResult{}, errors.Wrap(ErrRunExists, runID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.track(runID, cancel); err != nil {
		return EvolutionResult{}, err
	}
	defer p.untrack(runID)

	r := &run{
		polis:  p,
		cfg:    cfg,
		id:     runID,
		scape:  target,
		src:    rng.New(cfg.Run.Seed),
		logger: p.logger.With("run_id", runID, "scape", target.Name(), "algorithm", cfg.Run.Algorithm),
	}
	return r.execute(runCtx)
}

func (p *Polis) track(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return errors.Wrap(ErrRunExists, runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) untrack(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

type run struct {
	polis  *Polis
	cfg    config.Config
	id     string
	scape  scape.Scape
	src    *rng.Rand
	logger *slog.Logger

	evolve      func(rng.Source, []*Agent) ([]*Agent, evo.Statistics, error)
	maxLifeTime int
}

func (r *run) execute(ctx context.Context) (EvolutionResult, error) {
	if err := r.buildEvolver(); err != nil {
		return EvolutionResult{}, err
	}

	population, parentID, err := r.seed(ctx)
	if err != nil {
		return EvolutionResult{}, err
	}

	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              r.id,
		ParentRunID:     parentID,
		Scape:           r.scape.Name(),
		Algorithm:       r.cfg.Run.Algorithm,
		Seed:            r.cfg.Run.Seed,
		PopulationSize:  len(population),
		Generations:     r.cfg.Run.Generations,
		StartedAt:       time.Now().UTC(),
	}
	if err := r.polis.store.SaveRun(ctx, record); err != nil {
		return EvolutionResult{}, errors.Wrap(err, "save run")
	}
	r.logger.Info("run started", "population", len(population), "generations", r.cfg.Run.Generations, "parent_run_id", parentID)

	if err := r.evaluate(ctx, population); err != nil {
		return EvolutionResult{}, err
	}

	result := EvolutionResult{RunID: r.id, ParentRunID: parentID}
	var stopErr error
	for gen := 1; gen <= r.cfg.Run.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		next, st, err := r.evolve(r.src, population)
		if err != nil {
			return EvolutionResult{}, errors.Wrapf(err, "evolve generation %d", gen)
		}
		if err := r.evaluate(ctx, next); err != nil {
			if ctx.Err() != nil {
				stopErr = ctx.Err()
				break
			}
			return EvolutionResult{}, err
		}
		population = next

		rec := generationRecord(gen, st)
		result.Generations = append(result.Generations, rec)
		result.BestByGeneration = append(result.BestByGeneration, rec.MaxFitness)
		r.logger.Debug("generation complete",
			"generation", gen,
			"max_fitness", rec.MaxFitness,
			"avg_fitness", rec.AvgFitness,
			"changed", rec.ChangedCount,
			"max_neuron_id", rec.MaxNeuronID,
		)
		if r.polis.onGeneration != nil {
			r.polis.onGeneration(r.id, rec)
		}
	}

	members := make([]model.MemberRecord, len(population))
	for i, agent := range population {
		members[i] = agent.record()
	}
	result.FinalPopulation = stats.RankMembers(members)
	result.BestFinalFitness = result.FinalPopulation[0].Fitness
	result.Completed = stopErr == nil

	if err := r.persist(record, members, result); err != nil {
		return result, err
	}
	if r.polis.artifactsDir != "" {
		path, err := r.writeArtifacts(result)
		if err != nil {
			return result, err
		}
		result.ArtifactsPath = path
	}

	if stopErr != nil {
		r.logger.Warn("run interrupted", "generations_done", len(result.Generations), "error", stopErr)
		return result, errors.Wrap(stopErr, "run interrupted")
	}
	r.logger.Info("run finished", "best_fitness", result.BestFinalFitness)
	return result, nil
}

func (r *run) buildEvolver() error {
	selector, err := evo.SelectorFromName(r.cfg.Evolution.Selection, r.cfg.Evolution.SelectionFloor)
	if err != nil {
		return err
	}
	crossover, err := evo.CrossoverFromName(r.cfg.Evolution.Crossover)
	if err != nil {
		return err
	}
	algoCfg := evo.AlgorithmConfig{
		GenerationLength: r.cfg.Evolution.GenerationLength,
		Selector:         selector,
		Crossover:        crossover,
	}
	activation := r.cfg.Topology.Activation
	mut := r.cfg.Mutation

	switch r.cfg.Run.Algorithm {
	case evo.AlgorithmGenerational:
		mutator, err := evo.NewWeightMutation(mut.Chance, mut.Coeff)
		if err != nil {
			return err
		}
		ga, err := evo.NewGeneticAlgorithm(algoCfg, mutator, func(g genotype.Genome) *Agent {
			return newAgent(g, activation, 1)
		})
		if err != nil {
			return err
		}
		r.evolve = ga.Evolve
		r.maxLifeTime = 1
	default:
		mutator, err := evo.NewFlexMutation(mut.Chance, mut.Coeff, mut.EyeCells)
		if err != nil {
			return err
		}
		mutator.InputChance = mut.InputChance
		mutator.NeuronChance = mut.NeuronChance
		mutator.LayerChance = mut.LayerChance
		mutator.AddNeuronChance = mut.AddNeuronChance
		mutator.AddLayerChance = mut.AddLayerChance
		flex, err := evo.NewFlexAlgorithm(algoCfg, mutator, func(o evo.Offspring) *Agent {
			return agentFromOffspring(o, activation)
		})
		if err != nil {
			return err
		}
		r.evolve = flex.Evolve
		r.maxLifeTime = flex.MaxLifeTime()
	}
	return nil
}

// seed builds the initial population, either fresh or from the latest
// snapshot of the run being continued.
func (r *run) seed(ctx context.Context) ([]*Agent, string, error) {
	activation := r.cfg.Topology.Activation
	if parent := r.cfg.Run.ContinueFrom; parent != "" {
		snapshot, ok, err := r.polis.store.LatestPopulation(ctx, parent)
		if err != nil {
			return nil, "", errors.Wrapf(err, "load population of %s", parent)
		}
		if !ok || len(snapshot.Members) == 0 {
			return nil, "", errors.Wrapf(ErrRunNotFound, "no population for run %s", parent)
		}
		population := make([]*Agent, len(snapshot.Members))
		for i, member := range snapshot.Members {
			population[i] = agentFromMember(member, activation)
		}
		if len(population) != r.cfg.Run.Population {
			r.logger.Info("population size taken from continued run", "configured", r.cfg.Run.Population, "snapshot", len(population))
		}
		return population, parent, nil
	}

	population := make([]*Agent, r.cfg.Run.Population)
	for i := range population {
		genome, err := genotype.NewLayered(r.src, r.scape.Inputs(), r.cfg.Topology.Hidden, r.scape.Outputs())
		if err != nil {
			return nil, "", errors.Wrap(err, "seed genome")
		}
		population[i] = newAgent(genome, activation, r.src.IntRange(1, r.maxLifeTime))
	}
	return population, "", nil
}

// evaluate scores every agent with at most Workers concurrent evaluations.
func (r *run) evaluate(ctx context.Context, population []*Agent) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(r.cfg.Run.Workers, len(population))))
	for _, agent := range population {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return agent.evaluate(gctx, r.scape)
		})
	}
	return g.Wait()
}

func (r *run) persist(record model.RunRecord, members []model.MemberRecord, result EvolutionResult) error {
	// Persist even when the run context was cancelled.
	ctx := context.Background()
	snapshot := model.PopulationSnapshot{
		VersionedRecord: storage.CurrentVersion(),
		ID:              uuid.NewString(),
		RunID:           r.id,
		Generation:      len(result.Generations),
		Members:         members,
	}
	if err := r.polis.store.SavePopulation(ctx, snapshot); err != nil {
		return errors.Wrap(err, "save population")
	}
	if err := r.polis.store.SaveGenerations(ctx, r.id, result.Generations); err != nil {
		return errors.Wrap(err, "save generations")
	}
	record.BestFitness = result.BestFinalFitness
	record.FinishedAt = time.Now().UTC()
	record.Completed = result.Completed
	return errors.Wrap(r.polis.store.SaveRun(ctx, record), "save run")
}

func (r *run) writeArtifacts(result EvolutionResult) (string, error) {
	runCfg := stats.RunConfig{
		RunID:            r.id,
		ParentRunID:      result.ParentRunID,
		Scape:            r.scape.Name(),
		Algorithm:        r.cfg.Run.Algorithm,
		PopulationSize:   len(result.FinalPopulation),
		Generations:      len(result.Generations),
		Seed:             r.cfg.Run.Seed,
		Hidden:           append([]int(nil), r.cfg.Topology.Hidden...),
		GenerationLength: r.cfg.Evolution.GenerationLength,
		Selection:        r.cfg.Evolution.Selection,
		SelectionFloor:   r.cfg.Evolution.SelectionFloor,
		Crossover:        r.cfg.Evolution.Crossover,
		MutationChance:   r.cfg.Mutation.Chance,
		MutationCoeff:    r.cfg.Mutation.Coeff,
		EyeCells:         r.cfg.Mutation.EyeCells,
		InputChance:      r.cfg.Mutation.InputChance,
		NeuronChance:     r.cfg.Mutation.NeuronChance,
		LayerChance:      r.cfg.Mutation.LayerChance,
		AddNeuronChance:  r.cfg.Mutation.AddNeuronChance,
		AddLayerChance:   r.cfg.Mutation.AddLayerChance,
	}
	path, err := stats.WriteRunArtifacts(r.polis.artifactsDir, stats.RunArtifacts{
		Config:           runCfg,
		Generations:      result.Generations,
		FinalBestFitness: result.BestFinalFitness,
		FinalPopulation:  result.FinalPopulation,
	})
	if err != nil {
		return "", errors.Wrap(err, "write artifacts")
	}
	err = stats.AppendRunIndex(r.polis.artifactsDir, stats.RunIndexEntry{
		RunID:            r.id,
		Scape:            r.scape.Name(),
		Algorithm:        r.cfg.Run.Algorithm,
		PopulationSize:   len(result.FinalPopulation),
		Generations:      len(result.Generations),
		Seed:             r.cfg.Run.Seed,
		FinalBestFitness: result.BestFinalFitness,
		CreatedAtUTC:     time.Now().UTC().Format(time.RFC3339),
	})
	return path, errors.Wrap(err, "append run index")
}

func generationRecord(gen int, st evo.Statistics) model.GenerationRecord {
	return model.GenerationRecord{
		Generation:    gen,
		MinFitness:    st.MinFitness,
		MaxFitness:    st.MaxFitness,
		AvgFitness:    st.AvgFitness,
		MedianFitness: st.MedianFitness,
		StdDevFitness: st.StdDevFitness,
		ChangedCount:  st.ChangedCount,
		Shapes:        st.Shapes,
		MaxNeuronID:   st.MaxNeuronID,
	}
}
