package config

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"flexevo/internal/evo"
	"flexevo/internal/nn"
	"flexevo/internal/scape"
)

// Config is a complete run configuration. Load overlays an INI file on
// Default; keys missing from the file keep their default values.
type Config struct {
	Run       RunConfig
	Evolution EvolutionConfig
	Mutation  MutationConfig
	Topology  TopologyConfig
}

type RunConfig struct {
	RunID        string `ini:"run_id"`
	ContinueFrom string `ini:"continue_from"` // run id whose latest population seeds this run
	Scape        string `ini:"scape"`
	Algorithm    string `ini:"algorithm"` // flex | generational
	Population   int    `ini:"population"`
	Generations  int    `ini:"generations"`
	Seed         int64  `ini:"seed"`
	Workers      int    `ini:"workers"`
	Store        string `ini:"store"` // memory | sqlite
	DBPath       string `ini:"db_path"`
	ArtifactsDir string `ini:"artifacts_dir"`
}

type EvolutionConfig struct {
	GenerationLength int     `ini:"generation_length"`
	Selection        string  `ini:"selection"`
	SelectionFloor   float64 `ini:"selection_floor"`
	Crossover        string  `ini:"crossover"`
}

type MutationConfig struct {
	Chance          float64 `ini:"chance"`
	Coeff           float64 `ini:"coeff"`
	EyeCells        int     `ini:"eye_cells"`
	InputChance     float64 `ini:"input_chance"`
	NeuronChance    float64 `ini:"neuron_chance"`
	LayerChance     float64 `ini:"layer_chance"`
	AddNeuronChance float64 `ini:"add_neuron_chance"`
	AddLayerChance  float64 `ini:"add_layer_chance"`
}

type TopologyConfig struct {
	Hidden     []int  `ini:"hidden" delim:","`
	Activation string `ini:"activation"`
}

func Default() Config {
	return Config{
		Run: RunConfig{
			Scape:        "xor",
			Algorithm:    evo.AlgorithmFlex,
			Population:   50,
			Generations:  100,
			Seed:         1,
			Workers:      4,
			Store:        "memory",
			DBPath:       "flexevo.db",
			ArtifactsDir: "runs",
		},
		Evolution: EvolutionConfig{
			GenerationLength: 2000,
			Selection:        "roulette_wheel",
			SelectionFloor:   evo.DefaultSelectionFloor,
			Crossover:        "uniform",
		},
		Mutation: MutationConfig{
			Chance:          0.1,
			Coeff:           0.5,
			EyeCells:        1,
			NeuronChance:    evo.DefaultNeuronChance,
			LayerChance:     evo.DefaultLayerChance,
			AddNeuronChance: evo.DefaultAddNeuronChance,
			AddLayerChance:  evo.DefaultAddLayerChance,
		},
		Topology: TopologyConfig{
			Hidden:     []int{2},
			Activation: "tanh",
		},
	}
}

// Load reads an INI file over Default.
func Load(path string) (Config, error) {
	cfg, err := load(path)
	return cfg, errors.Wrapf(err, "load config %s", path)
}

// Parse reads INI content over Default.
func Parse(data []byte) (Config, error) {
	cfg, err := load(data)
	return cfg, errors.Wrap(err, "parse config")
}

func load(source any) (Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, source)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	sections := []struct {
		name string
		dst  any
	}{
		{"run", &cfg.Run},
		{"evolution", &cfg.Evolution},
		{"mutation", &cfg.Mutation},
		{"topology", &cfg.Topology},
	}
	for _, section := range sections {
		if !file.HasSection(section.name) {
			continue
		}
		if err := file.Section(section.name).MapTo(section.dst); err != nil {
			return Config{}, errors.Wrapf(err, "map [%s]", section.name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and normalizes strategy names in place.
func (c *Config) Validate() error {
	s, err := scape.ByName(c.Run.Scape)
	if err != nil {
		return err
	}
	c.Run.Scape = s.Name()
	algorithm, err := evo.ValidateAlgorithm(c.Run.Algorithm)
	if err != nil {
		return err
	}
	c.Run.Algorithm = algorithm
	if c.Run.Population <= 0 {
		return errors.Errorf("population must be > 0: %d", c.Run.Population)
	}
	if c.Run.Generations < 0 {
		return errors.Errorf("generations must be >= 0: %d", c.Run.Generations)
	}
	if c.Run.Workers <= 0 {
		c.Run.Workers = 1
	}
	c.Run.Store = strings.ToLower(strings.TrimSpace(c.Run.Store))
	switch c.Run.Store {
	case "", "memory", "sqlite":
	default:
		return errors.Errorf("unsupported store backend: %s", c.Run.Store)
	}

	if c.Evolution.GenerationLength < 0 {
		return errors.Errorf("generation_length must be >= 0: %d", c.Evolution.GenerationLength)
	}
	if c.Evolution.SelectionFloor < 0 {
		return errors.Errorf("selection_floor must be >= 0: %v", c.Evolution.SelectionFloor)
	}
	if _, err := evo.SelectorFromName(c.Evolution.Selection, c.Evolution.SelectionFloor); err != nil {
		return err
	}
	if _, err := evo.CrossoverFromName(c.Evolution.Crossover); err != nil {
		return err
	}

	chances := []struct {
		name  string
		value float64
	}{
		{"chance", c.Mutation.Chance},
		{"input_chance", c.Mutation.InputChance},
		{"neuron_chance", c.Mutation.NeuronChance},
		{"layer_chance", c.Mutation.LayerChance},
		{"add_neuron_chance", c.Mutation.AddNeuronChance},
		{"add_layer_chance", c.Mutation.AddLayerChance},
	}
	for _, p := range chances {
		if p.value < 0 || p.value > 1 {
			return errors.Errorf("mutation %s must be in [0, 1]: %v", p.name, p.value)
		}
	}
	if c.Mutation.EyeCells < 0 {
		return errors.Errorf("mutation eye_cells must be >= 0: %d", c.Mutation.EyeCells)
	}

	if c.Topology.Activation == "" {
		c.Topology.Activation = nn.DefaultActivation
	}
	if _, err := nn.GetActivation(c.Topology.Activation); err != nil {
		return err
	}
	for i, size := range c.Topology.Hidden {
		if size <= 0 {
			return errors.Errorf("topology hidden[%d] must be > 0: %d", i, size)
		}
	}
	return nil
}
