package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"flexevo/internal/scape"
	"flexevo/internal/storage"
	"flexevo/pkg/flexevo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:], out)
	case "runs":
		return runRuns(ctx, args[1:], out)
	case "generations":
		return runGenerations(ctx, args[1:], out)
	case "population":
		return runPopulation(ctx, args[1:], out)
	case "export":
		return runExport(ctx, args[1:], out)
	case "scapes":
		for _, name := range scape.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return errors.Errorf("%s\nusage: flexevoctl <run|runs|generations|population|export|scapes> [flags]", msg)
}

// clientFlags are shared by every command that opens a client.
type clientFlags struct {
	store        *string
	dbPath       *string
	artifactsDir *string
	logFormat    *string
	verbose      *bool
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		store:        fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", "flexevo.db", "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", "runs", "run artifacts directory"),
		logFormat:    fs.String("log-format", "text", "log format: text|json"),
		verbose:      fs.Bool("v", false, "log every generation"),
	}
}

func (f clientFlags) open(stderr io.Writer) (*flexevo.Client, error) {
	logger, err := newLogger(stderr, *f.logFormat, *f.verbose)
	if err != nil {
		return nil, err
	}
	return flexevo.New(flexevo.Options{
		StoreKind:    *f.store,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		Logger:       logger,
	})
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.Errorf("unsupported log format: %s", format)
	}
}

func runRun(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "INI run configuration")
	runID := fs.String("run-id", "", "run id (generated when empty)")
	continueFrom := fs.String("continue-from", "", "seed from the latest population of this run")
	scapeName := fs.String("scape", "", "scape name")
	algorithm := fs.String("algorithm", "", "evolution loop: flex|generational")
	population := fs.Int("pop", 0, "population size")
	generations := fs.Int("gens", 0, "generations")
	seed := fs.Int64("seed", 0, "random seed")
	workers := fs.Int("workers", 0, "concurrent evaluations")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := flexevo.DefaultConfig()
	if *configPath != "" {
		loaded, err := flexevo.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// explicit flags win over the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "run-id":
			cfg.Run.RunID = *runID
		case "continue-from":
			cfg.Run.ContinueFrom = *continueFrom
		case "scape":
			cfg.Run.Scape = *scapeName
		case "algorithm":
			cfg.Run.Algorithm = *algorithm
		case "pop":
			cfg.Run.Population = *population
		case "gens":
			cfg.Run.Generations = *generations
		case "seed":
			cfg.Run.Seed = *seed
		case "workers":
			cfg.Run.Workers = *workers
		case "store":
			cfg.Run.Store = *cf.store
		case "db-path":
			cfg.Run.DBPath = *cf.dbPath
		case "artifacts-dir":
			cfg.Run.ArtifactsDir = *cf.artifactsDir
		}
	})
	if *configPath != "" {
		// the file decides storage unless a flag overrode it
		*cf.store, *cf.dbPath, *cf.artifactsDir = cfg.Run.Store, cfg.Run.DBPath, cfg.Run.ArtifactsDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := cf.open(os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, cfg)
	if summary.RunID != "" {
		fmt.Fprintf(out, "run_id=%s completed=%t generations=%d best_fitness=%.6f artifacts=%s\n",
			summary.RunID,
			summary.Completed,
			len(summary.BestByGeneration),
			summary.FinalBestFitness,
			summary.ArtifactsDir,
		)
	}
	return err
}

func runRuns(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := cf.open(os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "run_id=%s started=%s scape=%s algorithm=%s seed=%d pop=%s gens=%s completed=%t best_fitness=%.6f",
			r.RunID,
			r.StartedAt,
			r.Scape,
			r.Algorithm,
			r.Seed,
			humanize.Comma(int64(r.Population)),
			humanize.Comma(int64(r.Generations)),
			r.Completed,
			r.FinalBestFitness,
		)
		if r.ParentRunID != "" {
			fmt.Fprintf(out, " parent=%s", r.ParentRunID)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runGenerations(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generations", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "show only the last N generations")
	jsonOut := fs.Bool("json", false, "emit generations as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}

	client, err := cf.open(os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	generations, err := client.Generations(ctx, flexevo.RunRef{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *limit > 0 && len(generations) > *limit {
		generations = generations[len(generations)-*limit:]
	}
	if *jsonOut {
		return writeJSON(out, generations)
	}
	for _, g := range generations {
		fmt.Fprintf(out, "generation=%d max=%.6f avg=%.6f median=%.6f min=%.6f std=%.6f changed=%d max_neuron_id=%d shapes=%s\n",
			g.Generation,
			g.MaxFitness,
			g.AvgFitness,
			g.MedianFitness,
			g.MinFitness,
			g.StdDevFitness,
			g.ChangedCount,
			g.MaxNeuronID,
			strings.Join(g.Shapes, ","),
		)
	}
	return nil
}

func runPopulation(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 10, "max members to show")
	jsonOut := fs.Bool("json", false, "emit members as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open(os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	members, err := client.Population(ctx, flexevo.RunRef{RunID: *runID, Latest: *latest}, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(out, members)
	}
	for _, m := range members {
		fmt.Fprintf(out, "rank=%d fitness=%.6f life_time=%d shape=%s genes=%s fingerprint=%s\n",
			m.Rank,
			m.Fitness,
			m.LifeTime,
			m.Signature.Shape,
			humanize.Comma(int64(len(m.Genome))),
			m.Signature.Fingerprint,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "export output directory")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open(os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, flexevo.ExportRequest{
		RunRef: flexevo.RunRef{RunID: *runID, Latest: *latest},
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
