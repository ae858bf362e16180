package reason

import (
	"github.com/smilemakc/reason/internal/domain"
	"github.com/smilemakc/reason/internal/engine"
)

// Config is every run-level knob the engine exposes. It is a plain
// struct: only the CLI's config loader reads YAML/flags to build one,
// the library entry point always takes an explicit value.
type Config = engine.Config

// Convergence policy constructors, re-exported so callers never import
// internal/engine directly.
type (
	ConvergencePolicy  = engine.ConvergencePolicy
	DeltaInterpretation = engine.DeltaInterpretation
	DeltaBound          = engine.DeltaBound
	Perfect             = engine.Perfect
)

// Mode is the strategy used to combine an existing fact with a proposal.
type Mode = domain.Mode

const (
	ModeIntersection = domain.ModeIntersection
	ModeOverride      = domain.ModeOverride
)

// NewDefaultConfig returns a Config with conservative defaults: a
// generous step ceiling, run-to-completion convergence, intersection
// combination, and facts emitted but no trace.
func NewDefaultConfig() Config {
	return Config{
		TMax:        100,
		Convergence: Perfect{},
		DefaultMode: ModeIntersection,
		EmitFacts:   true,
		EmitTrace:   false,
	}
}
