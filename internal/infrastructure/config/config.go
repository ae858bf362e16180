// Package config loads the CLI's run configuration from YAML, grounded
// on the teacher's infrastructure/config loader: a single typed struct
// unmarshaled with gopkg.in/yaml.v3, validated, then translated into the
// engine's own Config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smilemakc/reason/internal/domain"
	"github.com/smilemakc/reason/internal/engine"
)

// Config is the on-disk shape of a run's configuration (§6).
type Config struct {
	TMax              int                            `yaml:"tmax"`
	Convergence       string                         `yaml:"convergence"`
	DefaultMode       string                         `yaml:"default_mode"`
	EmitFacts         bool                           `yaml:"emit_facts"`
	EmitTrace         bool                           `yaml:"emit_trace"`
	Parallel          bool                           `yaml:"parallel"`
	WallTimeout       string                         `yaml:"wall_timeout"`
	LogLevel          string                         `yaml:"log_level"`
	AnnotationContext map[string]any                 `yaml:"annotation_context"`
	PrecedentWeights  map[string]map[string]float64  `yaml:"precedent_weights"`
	ExprAggregators   map[string]string              `yaml:"expr_aggregators"`
	DSN               string                         `yaml:"db_dsn"`

	RulesPath string `yaml:"rules_path"`
	GraphPath string `yaml:"graph_path"`
	FactsPath string `yaml:"facts_path"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.TMax <= 0 {
		cfg.TMax = 100
	}
	if cfg.Convergence == "" {
		cfg.Convergence = "perfect"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}

// ToEngineConfig translates the on-disk shape into engine.Config,
// resolving the convergence policy string and wall-timeout duration.
func (c *Config) ToEngineConfig() (engine.Config, error) {
	policy, err := engine.ParseConvergence(c.Convergence)
	if err != nil {
		return engine.Config{}, err
	}
	mode, ok := domain.ParseMode(c.DefaultMode)
	if !ok {
		return engine.Config{}, fmt.Errorf("unknown default_mode %q", c.DefaultMode)
	}
	var wallTimeout time.Duration
	if c.WallTimeout != "" {
		wallTimeout, err = time.ParseDuration(c.WallTimeout)
		if err != nil {
			return engine.Config{}, fmt.Errorf("parsing wall_timeout: %w", err)
		}
	}
	return engine.Config{
		TMax:               c.TMax,
		Convergence:        policy,
		DefaultMode:        mode,
		EmitFacts:          c.EmitFacts,
		EmitTrace:          c.EmitTrace,
		AnnotationContext:  c.AnnotationContext,
		PrecedentWeights:   c.PrecedentWeights,
		Parallel:           c.Parallel,
		WallTimeout:        wallTimeout,
		ExprAggregatorSrcs: c.ExprAggregators,
	}, nil
}
