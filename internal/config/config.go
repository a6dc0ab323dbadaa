package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"epochkit/internal/seed"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Epochs     int    `yaml:"epochs"`
	BatchSize  int    `yaml:"batch_size"`
	PrintEvery int    `yaml:"print_every"`
	// Seed 0 selects seed.DefaultSeed.
	Seed       int64  `yaml:"seed"`
	Device     string `yaml:"device"`

	Optimizer    string  `yaml:"optimizer"`
	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum"`
	WeightDecay  float64 `yaml:"weight_decay"`

	Hidden  []int   `yaml:"hidden"`
	Dropout float64 `yaml:"dropout"`

	// DataRoots lists WebDataset shard directories. Without them a synthetic
	// blob dataset of Samples points is generated.
	DataRoots   []string `yaml:"data_roots"`
	Samples     int      `yaml:"samples"`
	Features    int      `yaml:"features"`
	Classes     int      `yaml:"classes"`
	Spread      float64  `yaml:"spread"`
	ValFraction float64  `yaml:"val_fraction"`

	LogDir    string `yaml:"log_dir"`
	ScoresOut string `yaml:"scores_out"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Epochs       int
	BatchSize    int
	PrintEvery   int
	Seed         int64
	Device       string
	Optimizer    string
	LearningRate float64
	DataRoots    []string
	LogDir       string
	ScoresOut    string
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		Epochs:       10,
		BatchSize:    32,
		PrintEvery:   1,
		Seed:         seed.DefaultSeed,
		Device:       "cpu",
		Optimizer:    "sgd",
		LearningRate: 0.1,
		Hidden:       []int{16},
		Samples:      1000,
		Features:     2,
		Classes:      4,
		Spread:       1.0,
		ValFraction:  0.2,
	}
}

// Load reads and validates a Config from YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.PrintEvery > 0 {
		c.PrintEvery = o.PrintEvery
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.Optimizer != "" {
		c.Optimizer = o.Optimizer
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if len(o.DataRoots) > 0 {
		c.DataRoots = o.DataRoots
	}
	if o.LogDir != "" {
		c.LogDir = o.LogDir
	}
	if o.ScoresOut != "" {
		c.ScoresOut = o.ScoresOut
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	switch strings.ToLower(c.Optimizer) {
	case "sgd", "adam":
	default:
		return fmt.Errorf("optimizer must be sgd or adam (got %q)", c.Optimizer)
	}
	if c.Momentum < 0 || c.WeightDecay < 0 {
		return errors.New("momentum and weight_decay must be >= 0")
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1) (got %g)", c.Dropout)
	}
	for _, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden layer widths must be > 0 (got %v)", c.Hidden)
		}
	}
	if c.ValFraction <= 0 || c.ValFraction >= 1 {
		return fmt.Errorf("val_fraction must be in (0, 1) (got %g)", c.ValFraction)
	}
	if len(c.DataRoots) == 0 {
		if c.Samples <= 0 || c.Features <= 0 || c.Classes < 2 {
			return fmt.Errorf("synthetic data needs samples > 0, features > 0 and classes >= 2 (got %d, %d, %d)",
				c.Samples, c.Features, c.Classes)
		}
		if c.Spread <= 0 {
			return fmt.Errorf("spread must be > 0 (got %g)", c.Spread)
		}
	}
	if c.PrintEvery <= 0 {
		c.PrintEvery = 1
	}
	if c.Seed == 0 {
		c.Seed = seed.DefaultSeed
	}
	return nil
}
