package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds allocator defaults, overridable per request. Loaded from
// an optional YAML file named by ALLOC_CONFIG.
type Config struct {
	TimeSteps       []int              `yaml:"timeSteps"`
	CategoryWeights map[string]float64 `yaml:"categoryWeights"`
	SolveBudgetMs   int                `yaml:"solveBudgetMs"`
	FallbackWeight  float64            `yaml:"fallbackWeight"`
}

// Default returns the built-in allocator defaults.
func Default() *Config {
	return &Config{
		TimeSteps:     []int{0, 1, 2, 3, 4, 6, 7, 8, 9},
		SolveBudgetMs: 300_000,
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.SolveBudgetMs < 0 {
		return nil, fmt.Errorf("config: solveBudgetMs must be >= 0")
	}
	return cfg, nil
}

// Budget converts SolveBudgetMs to a duration.
func (c *Config) Budget() time.Duration {
	return time.Duration(c.SolveBudgetMs) * time.Millisecond
}
