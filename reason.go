// Package reason is the public facade over the deterministic legal-rule
// inference engine: compile a rule set, run it to a fixed point over a
// fact graph, and export the resulting interpretation. Internal packages
// implement the pieces (internal/domain, internal/compiler,
// internal/engine, internal/interpretation); this package wires them
// together the way the teacher's own root package wires its executor,
// factory, and logger around internal/application.
package reason

import (
	"context"
	"fmt"

	"github.com/smilemakc/reason/internal/compiler"
	"github.com/smilemakc/reason/internal/interpretation"
)

// GraphSpec is the full set of nodes and edges a run reasons over.
type GraphSpec struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// Document is the exported result of a run: facts, supports, trace, and
// termination metadata.
type Document = interpretation.Document

// Run compiles ruleSource, grounds it against graph and factsInitial,
// and drives the fixed-point loop to termination per cfg. env supplies
// the ambient collaborators (logger, tracer, metrics, snapshot store);
// its zero value is valid and simply disables each of them.
func Run(ctx context.Context, graph GraphSpec, factsInitial []FactInput, ruleSource string, cfg Config, env Environment) (*Document, error) {
	rules, err := compiler.Compile(ruleSource)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	return runCompiled(ctx, graph, factsInitial, rules, cfg, env)
}
