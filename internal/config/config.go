package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Root        string            `yaml:"root"`
	OutputDir   string            `yaml:"output_dir"`
	Split       string            `yaml:"split"`
	Metrics     []Metric          `yaml:"metrics"`
	Reduction   Reduction         `yaml:"reduction"`
	Dispersion  string            `yaml:"dispersion"`
	SigDigits   int               `yaml:"sig_digits"`
	MinSeeds    int               `yaml:"min_seeds"`
	TopK        int               `yaml:"top_k"`
	Language    string            `yaml:"language"`
	Placeholder string            `yaml:"placeholder"`
	Workers     int               `yaml:"workers"`
	RunTimeoutS int               `yaml:"run_timeout_s"`
	SeedPattern string            `yaml:"seed_pattern"`
	Exclude     []string          `yaml:"exclude"`
	MetricNames map[string]string `yaml:"metric_names"`
	HparamNames map[string]string `yaml:"hparam_names"`
	Check       Check             `yaml:"check"`
}

type Metric struct {
	Name      string `yaml:"name"`
	Direction string `yaml:"direction"`
}

type Reduction struct {
	Kind   string `yaml:"kind"`
	Window int    `yaml:"window"`
}

// Check configures the LaTeX compile check container.
type Check struct {
	Image          string `yaml:"image"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a config file without validating it, for callers that
// layer flag overrides on top and call Validate afterwards.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate fills in defaults and rejects inconsistent settings.
func (cfg *Config) Validate() error {
	if len(cfg.Metrics) == 0 {
		return fmt.Errorf("no metrics defined")
	}
	for i, m := range cfg.Metrics {
		if m.Name == "" {
			return fmt.Errorf("metric %d: name is required", i)
		}
		if !validDirection(m.Direction) {
			return fmt.Errorf("metric %q: unknown direction %q", m.Name, m.Direction)
		}
	}
	switch cfg.Reduction.Kind {
	case "", "last", "best":
	case "mean-last", "mean_last":
		if cfg.Reduction.Window < 1 {
			return fmt.Errorf("reduction %q: window must be at least 1", cfg.Reduction.Kind)
		}
	default:
		return fmt.Errorf("unknown reduction %q", cfg.Reduction.Kind)
	}
	switch cfg.Dispersion {
	case "", "stddev", "std", "popstddev", "popstd", "stderr", "sem":
	default:
		return fmt.Errorf("unknown dispersion %q", cfg.Dispersion)
	}
	switch cfg.Language {
	case "":
		cfg.Language = "english"
	case "english", "german":
	default:
		return fmt.Errorf("unknown language %q (want english or german)", cfg.Language)
	}
	if cfg.SigDigits < 0 {
		return fmt.Errorf("sig_digits must be at least 1")
	}
	if cfg.SigDigits == 0 {
		cfg.SigDigits = 2
	}
	if cfg.MinSeeds < 0 {
		return fmt.Errorf("min_seeds must not be negative")
	}
	if cfg.MinSeeds == 0 {
		cfg.MinSeeds = 1
	}
	if cfg.TopK < 0 {
		return fmt.Errorf("top_k must not be negative")
	}
	if cfg.TopK == 0 {
		cfg.TopK = 1
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if cfg.RunTimeoutS < 0 {
		return fmt.Errorf("run_timeout_s must not be negative")
	}
	return nil
}

func validDirection(d string) bool {
	switch d {
	case "", "maximize", "max", "minimize", "min":
		return true
	default:
		return false
	}
}

// RunTimeout is the per-run extraction deadline, zero for none.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutS) * time.Second
}

// CheckTimeout is the compile-check deadline.
func (c *Config) CheckTimeout() time.Duration {
	if c.Check.TimeoutMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Check.TimeoutMinutes) * time.Minute
}

// DecimalComma reports whether numbers render german-style.
func (c *Config) DecimalComma() bool {
	return c.Language == "german"
}

// DisplayMetric maps a metric tag to its table heading.
func (c *Config) DisplayMetric(name string) string {
	if renamed, ok := c.MetricNames[name]; ok {
		return renamed
	}
	return name
}

// DisplayHparam maps a hyperparameter to its table name.
func (c *Config) DisplayHparam(name string) string {
	if renamed, ok := c.HparamNames[name]; ok {
		return renamed
	}
	return name
}
