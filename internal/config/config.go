package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"gopkg.in/yaml.v3"

	denv "dronesearch/internal/env"
)

// EnvPrefix namespaces environment overrides, e.g. DRONESEARCH_GRID_SIZE
const EnvPrefix = "DRONESEARCH_"

// ErrInvalid wraps every configuration error; a run never starts with one
var ErrInvalid = errors.New("invalid configuration")

// Stop policies
const (
	StopMaxGenerations   = "max_generations"
	StopAllCellsExplored = "all_cells_explored"
	StopDesiredFitness   = "desired_fitness"
)

// Replacement policies
const (
	ReplaceTrim = "trim"
	ReplaceGrow = "grow"
)

// Config is the root configuration structure
type Config struct {
	Seed    int64         `yaml:"seed" env:"SEED"`
	Grid    GridConfig    `yaml:"grid" envPrefix:"GRID_"`
	Drones  DroneConfig   `yaml:"drones" envPrefix:"DRONES_"`
	GA      GAConfig      `yaml:"ga" envPrefix:"GA_"`
	Fitness FitnessConfig `yaml:"fitness" envPrefix:"FITNESS_"`
	Stop    StopConfig    `yaml:"stop" envPrefix:"STOP_"`
	Eval    EvalConfig    `yaml:"eval" envPrefix:"EVAL_"`
	Loop    LoopConfig    `yaml:"loop" envPrefix:"LOOP_"`
	Logging LogConfig     `yaml:"logging" envPrefix:"LOGGING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
}

// GridConfig defines the search area and the shared start cell
type GridConfig struct {
	Size     int `yaml:"size" env:"SIZE" validate:"gt=0"`
	StartRow int `yaml:"start_row" env:"START_ROW" validate:"gte=0"`
	StartCol int `yaml:"start_col" env:"START_COL" validate:"gte=0"`
}

// DroneConfig defines the swarm
type DroneConfig struct {
	Count int `yaml:"count" env:"COUNT" validate:"gt=0"`
}

// GAConfig defines genetic algorithm parameters
type GAConfig struct {
	Population    int    `yaml:"population" env:"POPULATION" validate:"gt=0"`
	SelectCount   int    `yaml:"select_count" env:"SELECT_COUNT" validate:"gt=0"`
	Selection     string `yaml:"selection" env:"SELECTION" validate:"oneof=truncation stochastic inverse_stochastic"`
	Crossover     string `yaml:"crossover" env:"CROSSOVER" validate:"oneof=one_point two_point fitness"`
	MutationCount int    `yaml:"mutation_count" env:"MUTATION_COUNT" validate:"gte=0"`
	Replacement   string `yaml:"replacement" env:"REPLACEMENT" validate:"oneof=trim grow"`
}

// FitnessConfig weights the three fitness components. The weights are
// independent multipliers and need not sum to 1.
type FitnessConfig struct {
	AreaWeight   float64 `yaml:"area_weight" env:"AREA_WEIGHT"`
	ReturnWeight float64 `yaml:"return_weight" env:"RETURN_WEIGHT"`
	RotateWeight float64 `yaml:"rotate_weight" env:"ROTATE_WEIGHT"`
}

// StopConfig selects exactly one stopping condition
type StopConfig struct {
	Policy         string  `yaml:"policy" env:"POLICY" validate:"oneof=max_generations all_cells_explored desired_fitness"`
	MaxGenerations int     `yaml:"max_generations" env:"MAX_GENERATIONS" validate:"gte=0"`
	DesiredFitness float64 `yaml:"desired_fitness" env:"DESIRED_FITNESS"`
}

// EvalConfig defines evaluation parameters
type EvalConfig struct {
	Workers     int  `yaml:"workers" env:"WORKERS" validate:"gte=0"`
	RecordPaths bool `yaml:"record_paths" env:"RECORD_PATHS"`
}

// LoopConfig defines how the evolution loop yields
type LoopConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
}

// LogConfig defines logging parameters
type LogConfig struct {
	Level           string `yaml:"level" env:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	EveryGenSummary bool   `yaml:"every_gen_summary" env:"EVERY_GEN_SUMMARY"`
	TopNDebug       int    `yaml:"topn_debug" env:"TOPN_DEBUG" validate:"gte=0"`
	CSVPath         string `yaml:"csv_path" env:"CSV_PATH"`
	JSONPath        string `yaml:"json_path" env:"JSON_PATH"`
}

// MetricsConfig controls the Prometheus endpoint; empty Addr disables it
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns a configuration that validates and runs
func Default() *Config {
	return &Config{
		Seed:   1337,
		Grid:   GridConfig{Size: 8},
		Drones: DroneConfig{Count: 2},
		GA: GAConfig{
			Population:    60,
			SelectCount:   10,
			Selection:     "truncation",
			Crossover:     "two_point",
			MutationCount: 3,
			Replacement:   ReplaceTrim,
		},
		Fitness: FitnessConfig{
			AreaWeight:   1.0,
			ReturnWeight: 1.0,
			RotateWeight: 0.1,
		},
		Stop: StopConfig{
			Policy:         StopMaxGenerations,
			MaxGenerations: 300,
			DesiredFitness: 2.0,
		},
		Eval:    EvalConfig{Workers: 1, RecordPaths: true},
		Loop:    LoopConfig{PollInterval: 50 * time.Millisecond},
		Logging: LogConfig{Level: "info", EveryGenSummary: true, TopNDebug: 5},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		aggErr := env.AggregateError{}
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// first error only, the rest are usually knock-on failures
			return nil, fmt.Errorf("%w: %v", ErrInvalid, aggErr.Errors[0])
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills ambient fields where zero means "pick for me"
func applyDefaults(cfg *Config) {
	if cfg.Eval.Workers == 0 {
		cfg.Eval.Workers = 1
	}
	if cfg.Loop.PollInterval <= 0 {
		cfg.Loop.PollInterval = 50 * time.Millisecond
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.CSVPath == "" {
		cfg.Logging.CSVPath = "runs/run.csv"
	}
	if cfg.Logging.JSONPath == "" {
		cfg.Logging.JSONPath = "runs/run.jsonl"
	}
}

var (
	validate   = validator.New(validator.WithRequiredStructEnabled())
	translator ut.Translator
)

func init() {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// Validate reports the first configuration problem, wrapped in ErrInvalid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s (value %v)", ErrInvalid, fe.Translate(translator), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if !c.Grid.Contains(c.Start()) {
		return fmt.Errorf("%w: start cell %v outside %dx%d grid", ErrInvalid, c.Start(), c.Grid.Size, c.Grid.Size)
	}
	if c.Fitness.AreaWeight == 0 && c.Fitness.ReturnWeight == 0 && c.Fitness.RotateWeight == 0 {
		return fmt.Errorf("%w: all fitness weights are zero", ErrInvalid)
	}
	if c.Stop.Policy == StopMaxGenerations && c.Stop.MaxGenerations <= 0 {
		return fmt.Errorf("%w: max_generations must be > 0 for the %s policy", ErrInvalid, StopMaxGenerations)
	}
	return nil
}

// Start returns the configured start cell
func (c *Config) Start() denv.Point {
	return denv.Point{Row: c.Grid.StartRow, Col: c.Grid.StartCol}
}

// Contains reports whether p lies on the configured grid
func (g GridConfig) Contains(p denv.Point) bool {
	return denv.NewGrid(g.Size).Contains(p)
}
