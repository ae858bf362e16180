package reason

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/smilemakc/reason/internal/domain"
	"github.com/smilemakc/reason/internal/engine"
	"github.com/smilemakc/reason/internal/infrastructure/metrics"
	"github.com/smilemakc/reason/internal/infrastructure/storage"
	"github.com/smilemakc/reason/internal/interpretation"
)

// Environment bundles the ambient collaborators a run may use. None are
// required: a zero-value Environment runs with a disabled logger, no
// tracer, no metrics, and no snapshot persistence.
type Environment struct {
	Logger        zerolog.Logger
	Tracer        trace.Tracer
	Metrics       *metrics.Recorder
	SnapshotStore storage.SnapshotStore
	SnapshotID    string
}

// runCompiled drives an already-compiled rule set to termination,
// exports the result, and persists it to env.SnapshotStore if one is
// configured. Grounded on the teacher's executor.go: a thin step that
// builds the runtime state from inputs, hands it to the engine, and
// shapes the output — no business logic of its own.
func runCompiled(ctx context.Context, graph GraphSpec, factsInitial []FactInput, rules []*domain.Rule, cfg Config, env Environment) (*Document, error) {
	g := buildGraph(graph.Nodes, graph.Edges)
	facts, err := buildFacts(factsInitial)
	if err != nil {
		return nil, err
	}

	driver := engine.NewDriver(g, facts, rules, cfg, env.Logger)
	driver.Tracer = env.Tracer
	driver.Metrics = env.Metrics

	result, err := driver.Run(ctx)
	if err != nil {
		return nil, err
	}

	doc := interpretation.FromResult(result, cfg.EmitFacts, cfg.EmitTrace)
	if env.SnapshotStore != nil {
		if err := env.SnapshotStore.Save(ctx, env.SnapshotID, doc); err != nil {
			return doc, err
		}
	}
	return doc, nil
}
