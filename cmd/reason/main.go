// Command reason runs the deterministic legal-rule inference engine
// against a graph, an initial fact set, and a rule DSL program, the way
// the teacher ships a cobra-based CLI over its own engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	reason "github.com/smilemakc/reason"
	domerr "github.com/smilemakc/reason/internal/domain/errors"
	"github.com/smilemakc/reason/internal/domain"
	"github.com/smilemakc/reason/internal/engine"
	infraconfig "github.com/smilemakc/reason/internal/infrastructure/config"
	"github.com/smilemakc/reason/internal/infrastructure/logger"
	"github.com/smilemakc/reason/internal/infrastructure/metrics"
	"github.com/smilemakc/reason/internal/infrastructure/storage"
	"github.com/smilemakc/reason/internal/infrastructure/tracing"
)

// Exit codes, fixed by the engine's external contract: 0 converged,
// 1 tmax reached, 2 cancelled, 3 compilation error, 4 internal error.
const (
	exitConverged   = 0
	exitTMax        = 1
	exitCancelled   = 2
	exitCompilation = 3
	exitInternal    = 4
)

func main() {
	os.Exit(runMain(os.Args[1:]))
}

func runMain(args []string) int {
	exitCode := exitInternal

	root := &cobra.Command{Use: "reason", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(newRunCmd(&exitCode), newWatchCmd(&exitCode))
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}
	return exitCode
}

type runFlags struct {
	rulesPath   string
	graphPath   string
	factsPath   string
	configPath  string
	tmax        int
	convergence string
	defaultMode string
	emitFacts   bool
	emitTrace   bool
	parallel    bool
	wallTimeout time.Duration
	logLevel    string
	dsn         string
	snapshotID  string
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.rulesPath, "rules", "", "path to the rule DSL source file")
	cmd.Flags().StringVar(&f.graphPath, "graph", "", "path to the graph JSON file")
	cmd.Flags().StringVar(&f.factsPath, "facts", "", "path to the initial facts JSON file")
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a YAML config file (overridden by explicit flags)")
	cmd.Flags().IntVar(&f.tmax, "tmax", 0, "hard ceiling on fixed-point steps")
	cmd.Flags().StringVar(&f.convergence, "convergence", "", "convergence policy: perfect|delta_interpretation:K|delta_bound:EPS")
	cmd.Flags().StringVar(&f.defaultMode, "default-mode", "", "intersection|override")
	cmd.Flags().BoolVar(&f.emitFacts, "emit-facts", true, "include facts/supports in the export")
	cmd.Flags().BoolVar(&f.emitTrace, "emit-trace", false, "include the per-assignment trace in the export")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "partition rule evaluation across independent label groups")
	cmd.Flags().DurationVar(&f.wallTimeout, "wall-timeout", 0, "abort the run after this much wall-clock time")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "debug|info|warn|error")
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "Postgres DSN for snapshot persistence (falls back to an in-memory store when empty)")
	cmd.Flags().StringVar(&f.snapshotID, "snapshot-id", "", "id to save the exported document under (defaults to a generated uuid)")
}

func newRunCmd(exitCode *int) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile a rule set and run it to a fixed point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			*exitCode = execRun(cmd.Context(), f)
			return nil
		},
	}
	bindRunFlags(cmd, &f)
	return cmd
}

func newWatchCmd(exitCode *int) *cobra.Command {
	var f runFlags
	var rulesDir string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recompile and re-run whenever the rules directory changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			*exitCode = execWatch(cmd.Context(), rulesDir, f)
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesDir, "rules-dir", "", "directory to watch for rule DSL changes")
	bindRunFlags(cmd, &f)
	return cmd
}

// buildEnvironment assembles the ambient collaborators a run exercises: a
// Prometheus registry feeding a metrics.Recorder, an OpenTelemetry tracer,
// and a snapshot store backed by Postgres when --dsn is set or an
// in-memory store otherwise. The returned func closes the Postgres pool,
// if one was opened.
func buildEnvironment(ctx context.Context, log zerolog.Logger, f runFlags) (reason.Environment, func(), error) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	tp := tracing.NewTracerProvider("reason")
	tracer := tp.Tracer("reason/cmd")

	var store storage.SnapshotStore
	closeFn := func() {}
	if f.dsn != "" {
		bunStore, err := storage.NewBunStore(f.dsn)
		if err != nil {
			return reason.Environment{}, closeFn, fmt.Errorf("opening snapshot store: %w", err)
		}
		if err := bunStore.EnsureSchema(ctx); err != nil {
			return reason.Environment{}, closeFn, fmt.Errorf("ensuring snapshot schema: %w", err)
		}
		store = bunStore
		closeFn = func() { _ = bunStore.Close() }
	} else {
		store = storage.NewMemoryStore()
	}

	snapshotID := f.snapshotID
	if snapshotID == "" {
		snapshotID = uuid.New().String()
	}

	return reason.Environment{
		Logger:        log,
		Tracer:        tracer,
		Metrics:       rec,
		SnapshotStore: store,
		SnapshotID:    snapshotID,
	}, closeFn, nil
}

func execRun(ctx context.Context, f runFlags) int {
	log := logger.New(logger.Options{Level: f.logLevel})

	cfg, err := resolveConfig(&f)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return exitInternal
	}

	ruleSrc, err := os.ReadFile(f.rulesPath)
	if err != nil {
		log.Error().Err(err).Msg("reading rules file")
		return exitInternal
	}
	graph, facts, err := loadInputs(f.graphPath, f.factsPath)
	if err != nil {
		log.Error().Err(err).Msg("reading graph/facts inputs")
		return exitInternal
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env, closeEnv, err := buildEnvironment(ctx, log, f)
	if err != nil {
		log.Error().Err(err).Msg("setting up environment")
		return exitInternal
	}
	defer closeEnv()

	doc, err := reason.Run(ctx, graph, facts, string(ruleSrc), cfg, env)
	return reportResult(log, doc, err)
}

func execWatch(ctx context.Context, rulesDir string, f runFlags) int {
	log := logger.New(logger.Options{Level: f.logLevel})
	if rulesDir == "" {
		log.Error().Msg("--rules-dir is required")
		return exitInternal
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("starting file watcher")
		return exitInternal
	}
	defer watcher.Close()
	if err := watcher.Add(rulesDir); err != nil {
		log.Error().Err(err).Msg("watching rules directory")
		return exitInternal
	}

	cfg, err := resolveConfig(&f)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return exitInternal
	}
	graph, facts, err := loadInputs(f.graphPath, f.factsPath)
	if err != nil {
		log.Error().Err(err).Msg("reading graph/facts inputs")
		return exitInternal
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env, closeEnv, err := buildEnvironment(ctx, log, f)
	if err != nil {
		log.Error().Err(err).Msg("setting up environment")
		return exitInternal
	}
	defer closeEnv()

	recompileAndRun := func() int {
		ruleSrc, err := os.ReadFile(f.rulesPath)
		if err != nil {
			log.Error().Err(err).Msg("reading rules file")
			return exitInternal
		}
		doc, err := reason.Run(ctx, graph, facts, string(ruleSrc), cfg, env)
		return reportResult(log, doc, err)
	}

	code := recompileAndRun()
	for {
		select {
		case <-ctx.Done():
			return exitCancelled
		case ev, ok := <-watcher.Events:
			if !ok {
				return code
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Info().Str("file", ev.Name).Msg("rules changed, recompiling")
			code = recompileAndRun()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return code
			}
			log.Warn().Err(werr).Msg("watcher error")
		}
	}
}

// reportResult maps a run's outcome to the fixed exit-code contract: a
// CompilationErrors return is 3, any other error is 4, and a successful
// Document maps its termination reason to 0/1/2.
func reportResult(log zerolog.Logger, doc *reason.Document, err error) int {
	if err != nil {
		var compErr *domerr.CompilationErrors
		if asCompilationErrors(err, &compErr) {
			log.Error().Err(err).Msg("rule set failed to compile")
			return exitCompilation
		}
		log.Error().Err(err).Msg("run failed")
		return exitInternal
	}

	raw, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(raw))

	switch doc.Meta.Reason {
	case "converged":
		return exitConverged
	case "tmax":
		return exitTMax
	case "cancelled", "timed_out":
		return exitCancelled
	default:
		return exitInternal
	}
}

func asCompilationErrors(err error, out **domerr.CompilationErrors) bool {
	for err != nil {
		if ce, ok := err.(*domerr.CompilationErrors); ok {
			*out = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func resolveConfig(f *runFlags) (reason.Config, error) {
	cfg := reason.NewDefaultConfig()
	if f.configPath != "" {
		fileCfg, err := infraconfig.Load(f.configPath)
		if err != nil {
			return reason.Config{}, err
		}
		engineCfg, err := fileCfg.ToEngineConfig()
		if err != nil {
			return reason.Config{}, err
		}
		cfg = engineCfg
		if f.dsn == "" {
			f.dsn = fileCfg.DSN
		}
	}

	if f.tmax > 0 {
		cfg.TMax = f.tmax
	}
	if f.convergence != "" {
		policy, err := engine.ParseConvergence(f.convergence)
		if err != nil {
			return reason.Config{}, err
		}
		cfg.Convergence = policy
	}
	if f.defaultMode != "" {
		mode, ok := domain.ParseMode(f.defaultMode)
		if !ok {
			return reason.Config{}, fmt.Errorf("unknown --default-mode %q", f.defaultMode)
		}
		cfg.DefaultMode = mode
	}
	cfg.EmitFacts = f.emitFacts
	cfg.EmitTrace = f.emitTrace
	cfg.Parallel = f.parallel
	if f.wallTimeout > 0 {
		cfg.WallTimeout = f.wallTimeout
	}
	return cfg, nil
}

type graphFile struct {
	Nodes []struct {
		ID     string   `json:"id"`
		Labels []string `json:"labels"`
	} `json:"nodes"`
	Edges []struct {
		U      string   `json:"u"`
		V      string   `json:"v"`
		Labels []string `json:"labels"`
	} `json:"edges"`
}

type factFile struct {
	Label   string   `json:"label"`
	Targets []string `json:"targets"`
	Lower   float64  `json:"lower"`
	Upper   float64  `json:"upper"`
	Static  bool     `json:"static"`
}

func loadInputs(graphPath, factsPath string) (reason.GraphSpec, []reason.FactInput, error) {
	var gf graphFile
	raw, err := os.ReadFile(graphPath)
	if err != nil {
		return reason.GraphSpec{}, nil, err
	}
	if err := json.Unmarshal(raw, &gf); err != nil {
		return reason.GraphSpec{}, nil, fmt.Errorf("parsing graph file: %w", err)
	}

	spec := reason.GraphSpec{}
	for _, n := range gf.Nodes {
		spec.Nodes = append(spec.Nodes, reason.GraphNode{ID: n.ID, Labels: n.Labels})
	}
	for _, e := range gf.Edges {
		spec.Edges = append(spec.Edges, reason.GraphEdge{U: e.U, V: e.V, Labels: e.Labels})
	}

	var ffs []factFile
	raw, err = os.ReadFile(factsPath)
	if err != nil {
		return reason.GraphSpec{}, nil, err
	}
	if err := json.Unmarshal(raw, &ffs); err != nil {
		return reason.GraphSpec{}, nil, fmt.Errorf("parsing facts file: %w", err)
	}

	facts := make([]reason.FactInput, len(ffs))
	for i, ff := range ffs {
		facts[i] = reason.FactInput{Label: ff.Label, Targets: ff.Targets, Lower: ff.Lower, Upper: ff.Upper, Static: ff.Static}
	}
	return spec, facts, nil
}
