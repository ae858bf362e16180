package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ConvergencePolicy decides whether a step's counters are enough to stop
// the fixed-point loop before TMax (§4.9).
type ConvergencePolicy interface {
	// Converged reports whether the step described by factsAdded and
	// maxBoundDelta satisfies this policy.
	Converged(factsAdded int, maxBoundDelta float64) bool
	String() string
}

// DeltaInterpretation stops once a step adds/changes at most K facts.
type DeltaInterpretation struct{ K int }

func (p DeltaInterpretation) Converged(factsAdded int, _ float64) bool { return factsAdded <= p.K }
func (p DeltaInterpretation) String() string                           { return fmt.Sprintf("delta_interpretation:%d", p.K) }

// DeltaBound stops once a step's largest bound narrowing is at most Epsilon.
type DeltaBound struct{ Epsilon float64 }

func (p DeltaBound) Converged(_ int, maxBoundDelta float64) bool { return maxBoundDelta <= p.Epsilon }
func (p DeltaBound) String() string                              { return fmt.Sprintf("delta_bound:%g", p.Epsilon) }

// Perfect always runs to TMax.
type Perfect struct{}

func (Perfect) Converged(int, float64) bool { return false }
func (Perfect) String() string              { return "perfect" }

// ParseConvergence parses the §6 wire form: "delta_interpretation:k",
// "delta_bound:epsilon", or "perfect".
func ParseConvergence(s string) (ConvergencePolicy, error) {
	switch {
	case s == "perfect":
		return Perfect{}, nil
	case strings.HasPrefix(s, "delta_interpretation:"):
		k, err := strconv.Atoi(strings.TrimPrefix(s, "delta_interpretation:"))
		if err != nil || k < 0 {
			return nil, fmt.Errorf("invalid delta_interpretation value in %q", s)
		}
		return DeltaInterpretation{K: k}, nil
	case strings.HasPrefix(s, "delta_bound:"):
		eps, err := strconv.ParseFloat(strings.TrimPrefix(s, "delta_bound:"), 64)
		if err != nil || eps < 0 {
			return nil, fmt.Errorf("invalid delta_bound value in %q", s)
		}
		return DeltaBound{Epsilon: eps}, nil
	default:
		return nil, fmt.Errorf("unknown convergence policy %q", s)
	}
}
