package stats

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"flexevo/internal/genotype"
	"flexevo/internal/model"
)

const (
	runIndexFile        = "run_index.json"
	configFile          = "config.json"
	generationsFile     = "generations.csv"
	finalPopulationFile = "final_population.json"
)

var artifactFiles = []string{configFile, generationsFile, finalPopulationFile}

var generationsHeader = []string{
	"generation", "min_fitness", "max_fitness", "avg_fitness", "median_fitness",
	"std_dev_fitness", "changed_count", "max_neuron_id", "shapes",
}

// RunConfig is the settings snapshot written next to every run.
type RunConfig struct {
	RunID            string  `json:"run_id"`
	ParentRunID      string  `json:"parent_run_id,omitempty"`
	Scape            string  `json:"scape"`
	Algorithm        string  `json:"algorithm"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Hidden           []int   `json:"hidden"`
	GenerationLength int     `json:"generation_length"`
	Selection        string  `json:"selection"`
	SelectionFloor   float64 `json:"selection_floor"`
	Crossover        string  `json:"crossover"`
	MutationChance   float64 `json:"mutation_chance"`
	MutationCoeff    float64 `json:"mutation_coeff"`
	EyeCells         int     `json:"eye_cells"`
	InputChance      float64 `json:"input_chance"`
	NeuronChance     float64 `json:"neuron_chance"`
	LayerChance      float64 `json:"layer_chance"`
	AddNeuronChance  float64 `json:"add_neuron_chance"`
	AddLayerChance   float64 `json:"add_layer_chance"`
}

// RankedMember is one individual of the final population, best first.
type RankedMember struct {
	Rank      int                      `json:"rank"`
	Fitness   float64                  `json:"fitness"`
	LifeTime  int                      `json:"life_time"`
	Signature genotype.GenomeSignature `json:"signature"`
	Genome    genotype.Genome          `json:"genome"`
}

type RunArtifacts struct {
	Config           RunConfig                `json:"config"`
	Generations      []model.GenerationRecord `json:"generations"`
	FinalBestFitness float64                  `json:"final_best_fitness"`
	FinalPopulation  []RankedMember           `json:"final_population"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Scape            string  `json:"scape"`
	Algorithm        string  `json:"algorithm"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// RankMembers orders members by fitness, best first, and attaches signatures.
func RankMembers(members []model.MemberRecord) []RankedMember {
	ranked := make([]RankedMember, 0, len(members))
	for _, member := range members {
		ranked = append(ranked, RankedMember{
			Fitness:   member.Fitness,
			LifeTime:  member.LifeTime,
			Signature: genotype.ComputeGenomeSignature(member.Genome),
			Genome:    member.Genome,
		})
	}
	slices.SortStableFunc(ranked, func(a, b RankedMember) int {
		return cmp.Compare(b.Fitness, a.Fitness)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", errors.New("run id is required")
	}

	dir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	final := map[string]any{
		"final_best_fitness": artifacts.FinalBestFitness,
		"members":            artifacts.FinalPopulation,
	}
	for _, write := range []func() error{
		func() error { return writeJSON(filepath.Join(dir, configFile), artifacts.Config) },
		func() error { return writeGenerationsCSV(filepath.Join(dir, generationsFile), artifacts.Generations) },
		func() error { return writeJSON(filepath.Join(dir, finalPopulationFile), final) },
	} {
		if err := write(); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// AppendRunIndex adds entry to the index under baseDir, replacing any entry
// with the same run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return errors.New("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", baseDir)
	}

	var index []RunIndexEntry
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &index); err != nil {
		return err
	}
	if at := slices.IndexFunc(index, func(e RunIndexEntry) bool { return e.RunID == entry.RunID }); at >= 0 {
		index[at] = entry
	} else {
		index = append(index, entry)
	}
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first; equal timestamps keep the
// later appended entry first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries := []RunIndexEntry{}
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries); err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	slices.SortStableFunc(entries, func(a, b RunIndexEntry) int {
		return strings.Compare(b.CreatedAtUTC, a.CreatedAtUTC)
	})
	return entries, nil
}

// ExportRunArtifacts copies the artifact files of runID into outDir/runID.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", errors.New("run id is required")
	}
	from := filepath.Join(baseDir, runID)
	if info, err := os.Stat(from); err != nil || !info.IsDir() {
		return "", errors.Errorf("run %s has no artifacts under %s", runID, baseDir)
	}

	to := filepath.Join(outDir, runID)
	if err := os.MkdirAll(to, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", to)
	}
	for _, name := range artifactFiles {
		data, err := os.ReadFile(filepath.Join(from, name))
		if err != nil {
			return "", errors.Wrapf(err, "copy %s", name)
		}
		if err := os.WriteFile(filepath.Join(to, name), data, 0o644); err != nil {
			return "", errors.Wrapf(err, "copy %s", name)
		}
	}
	return to, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	found, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	if err != nil || !found {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadGenerations(baseDir, runID string) ([]model.GenerationRecord, bool, error) {
	path := filepath.Join(baseDir, runID, generationsFile)
	in, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "open %s", path)
	}
	defer in.Close()

	rows := csv.NewReader(in)
	if _, err := rows.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.GenerationRecord{}, true, nil
		}
		return nil, false, errors.Wrapf(err, "read header of %s", path)
	}

	records := make([]model.GenerationRecord, 0, 64)
	for {
		row, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, errors.Wrapf(err, "read %s", path)
		}
		record, err := parseGenerationRow(row)
		if err != nil {
			return nil, false, errors.Wrapf(err, "row %d of %s", len(records)+1, path)
		}
		records = append(records, record)
	}
	return records, true, nil
}

func writeGenerationsCSV(path string, generations []model.GenerationRecord) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer out.Close()

	rows := csv.NewWriter(out)
	if err := rows.Write(generationsHeader); err != nil {
		return err
	}
	for _, g := range generations {
		if err := rows.Write([]string{
			strconv.Itoa(g.Generation),
			formatFloat(g.MinFitness),
			formatFloat(g.MaxFitness),
			formatFloat(g.AvgFitness),
			formatFloat(g.MedianFitness),
			formatFloat(g.StdDevFitness),
			strconv.Itoa(g.ChangedCount),
			strconv.Itoa(g.MaxNeuronID),
			strings.Join(g.Shapes, " "),
		}); err != nil {
			return err
		}
	}
	rows.Flush()
	return rows.Error()
}

func parseGenerationRow(row []string) (model.GenerationRecord, error) {
	if len(row) != len(generationsHeader) {
		return model.GenerationRecord{}, errors.Errorf("expected %d columns, got %d", len(generationsHeader), len(row))
	}
	var (
		record model.GenerationRecord
		err    error
	)
	ints := []struct {
		dst *int
		src string
	}{
		{&record.Generation, row[0]},
		{&record.ChangedCount, row[6]},
		{&record.MaxNeuronID, row[7]},
	}
	for _, field := range ints {
		if *field.dst, err = strconv.Atoi(field.src); err != nil {
			return model.GenerationRecord{}, err
		}
	}
	floats := []struct {
		dst *float64
		src string
	}{
		{&record.MinFitness, row[1]},
		{&record.MaxFitness, row[2]},
		{&record.AvgFitness, row[3]},
		{&record.MedianFitness, row[4]},
		{&record.StdDevFitness, row[5]},
	}
	for _, field := range floats {
		if *field.dst, err = strconv.ParseFloat(field.src, 64); err != nil {
			return model.GenerationRecord{}, err
		}
	}
	record.Shapes = strings.Fields(row[8])
	return record, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// readJSON decodes path into dst. A missing file is not an error.
func readJSON(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decode %s", path)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	data = append(data, '\n')
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}
