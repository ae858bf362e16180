package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/smilemakc/reason/internal/domain"
	domerr "github.com/smilemakc/reason/internal/domain/errors"
	"github.com/smilemakc/reason/internal/infrastructure/metrics"
)

// Config is every knob §6 exposes for one run, plus the ambient
// additions (Parallel, WallTimeout) SPEC_FULL adds on top.
type Config struct {
	TMax               int
	Convergence        ConvergencePolicy
	DefaultMode        domain.Mode
	EmitFacts          bool
	EmitTrace          bool
	AnnotationContext  map[string]any
	PrecedentWeights   map[string]map[string]float64 // rule id -> class -> weight, overrides the DSL's own weights
	Parallel           bool
	WallTimeout        time.Duration
	ExprAggregatorSrcs map[string]string // "expr:<name>" -> source, registered into the driver's ExprRegistry
}

// TraceEntry is one rule-grounding's contribution within a single step,
// recorded only when Config.EmitTrace is set (§4.11).
type TraceEntry struct {
	T       int
	Rule    string
	Head    domain.StmtKey
	Clauses []domain.StmtKey
}

// Result is everything a run produced: the final fact store, the
// support ledger, the optional trace, and the reason the loop stopped.
type Result struct {
	Facts    *domain.FactsIndex
	Supports map[domain.StmtKey][]string
	Trace    []TraceEntry
	Reason   string // "converged", "tmax", "cancelled", "timed_out"
	Steps    int
}

// Driver runs the C10 fixed-point loop over a compiled rule set.
type Driver struct {
	// Graph is the ingested node/edge identity the run was started
	// with (§6 run(graph, ...)). It is never mutated and never
	// consulted by Ground: candidate enumeration is sourced from Facts
	// alone, since a derived head update lands in Facts and never
	// back-propagates to Graph's label index (see grounder.go).
	Graph  *domain.Graph
	Facts  *domain.FactsIndex
	Rules  []*domain.Rule
	Config Config

	ExprRegistry *ExprRegistry
	Logger       zerolog.Logger
	Tracer       trace.Tracer // nil is valid: no spans are recorded
	Metrics      *metrics.Recorder

	start time.Time
}

// NewDriver builds a Driver with rules sorted by id (§4.9 step 1 requires
// id order) and an ExprRegistry preloaded from Config.ExprAggregatorSrcs.
func NewDriver(graph *domain.Graph, facts *domain.FactsIndex, rules []*domain.Rule, cfg Config, log zerolog.Logger) *Driver {
	sorted := make([]*domain.Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	reg := NewExprRegistry(0)
	for name, src := range cfg.ExprAggregatorSrcs {
		reg.Register(name, src)
	}

	return &Driver{
		Graph:        graph,
		Facts:        facts,
		Rules:        sorted,
		Config:       cfg,
		ExprRegistry: reg,
		Logger:       log,
	}
}

type provEntry struct {
	ruleID   string
	interval domain.Interval
}

// Run executes the fixed-point loop until convergence, TMax, cancellation
// via ctx, or Config.WallTimeout elapses (§4.9, §7).
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	d.start = time.Now()
	provenance := make(map[domain.StmtKey][]provEntry)
	var trace_ []TraceEntry

	t := 0
	reason := "tmax"
	for ; t < d.Config.TMax; t++ {
		if err := ctx.Err(); err != nil {
			reason = "cancelled"
			d.Logger.Warn().Err(&domerr.Cancelled{}).Int("t", t).Msg("run cancelled")
			break
		}
		if d.Config.WallTimeout > 0 && time.Since(d.start) > d.Config.WallTimeout {
			reason = "timed_out"
			d.Logger.Warn().Err(&domerr.TimedOut{}).Int("t", t).Msg("run exceeded wall timeout")
			break
		}

		proposals, stepTrace, err := d.evalStep(ctx, t)
		if err != nil {
			return nil, err
		}
		if d.Config.EmitTrace {
			trace_ = append(trace_, stepTrace...)
		}
		for _, p := range proposals {
			provenance[p.Key] = append(provenance[p.Key], provEntry{ruleID: p.RuleID, interval: p.Interval})
		}

		merged := Merge(proposals)
		factsAdded, maxBoundDelta, err := d.applyMerged(t, merged)
		if err != nil {
			return nil, err
		}
		if d.Metrics != nil {
			d.Metrics.RecordStep(factsAdded, maxBoundDelta)
		}

		if d.Config.Convergence != nil && d.Config.Convergence.Converged(factsAdded, maxBoundDelta) {
			reason = "converged"
			t++
			break
		}
	}

	supports := resolveSupports(d.Facts, provenance)
	return &Result{
		Facts:    d.Facts,
		Supports: supports,
		Trace:    trace_,
		Reason:   reason,
		Steps:    t,
	}, nil
}

// evalStep grounds every rule against the current FactsIndex and computes
// each satisfying assignment's proposed head update (§4.9 step 1-2).
func (d *Driver) evalStep(ctx context.Context, t int) ([]Proposal, []TraceEntry, error) {
	var span trace.Span
	if d.Tracer != nil {
		ctx, span = d.Tracer.Start(ctx, "reason.step", trace.WithAttributes(attribute.Int("t", t)))
		defer span.End()
	}

	if !d.Config.Parallel {
		var proposals []Proposal
		var traces []TraceEntry
		for _, rule := range d.Rules {
			p, tr, err := d.evalRule(rule, t)
			if err != nil {
				return nil, nil, err
			}
			proposals = append(proposals, p...)
			traces = append(traces, tr...)
		}
		return proposals, traces, nil
	}

	return d.evalStepParallel(t)
}

// evalStepParallel grounds each partitionByLabel group concurrently.
// Grounding only reads FactsIndex, and nothing is applied until every
// group has finished, so the groups never race on a statement key. The
// result is identical to the sequential path: C9's Merge re-sorts every
// group by key regardless of arrival order, and the trace is re-sorted
// into rule-id order.
func (d *Driver) evalStepParallel(t int) ([]Proposal, []TraceEntry, error) {
	groups := partitionByLabel(d.Rules)

	type groupResult struct {
		proposals []Proposal
		traces    []TraceEntry
	}
	results := make([]groupResult, len(groups))

	g := new(errgroup.Group)
	for gi, group := range groups {
		gi, group := gi, group
		g.Go(func() error {
			var proposals []Proposal
			var traces []TraceEntry
			for _, rule := range group {
				p, tr, err := d.evalRule(rule, t)
				if err != nil {
					return err
				}
				proposals = append(proposals, p...)
				traces = append(traces, tr...)
			}
			results[gi] = groupResult{proposals: proposals, traces: traces}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var proposals []Proposal
	var traces []TraceEntry
	for _, r := range results {
		proposals = append(proposals, r.proposals...)
		traces = append(traces, r.traces...)
	}
	sort.SliceStable(traces, func(i, j int) bool { return traces[i].Rule < traces[j].Rule })
	return proposals, traces, nil
}

// partitionByLabel groups rules by shared head or body labels: each rule
// joins the first existing group it shares a label with, or starts a new
// one. Groups that a later rule would bridge are not merged, so two
// groups can share a label. That is safe because FactsIndex reads during
// grounding never observe another rule's not-yet-applied proposal within
// the same step.
func partitionByLabel(rules []*domain.Rule) [][]*domain.Rule {
	labelOf := func(r *domain.Rule) map[string]bool {
		labels := map[string]bool{r.HeadLabel: true}
		for _, c := range r.Body {
			labels[c.Label] = true
		}
		return labels
	}

	var groups [][]*domain.Rule
	var groupLabels []map[string]bool
	for _, r := range rules {
		rl := labelOf(r)
		placed := false
		for gi, gl := range groupLabels {
			if overlaps(rl, gl) {
				groups[gi] = append(groups[gi], r)
				for l := range rl {
					gl[l] = true
				}
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*domain.Rule{r})
			groupLabels = append(groupLabels, rl)
		}
	}
	return groups
}

func overlaps(a, b map[string]bool) bool {
	for l := range a {
		if b[l] {
			return true
		}
	}
	return false
}

func (d *Driver) evalRule(rule *domain.Rule, t int) ([]Proposal, []TraceEntry, error) {
	assignments := Ground(rule, d.Facts)
	if len(assignments) == 0 {
		return nil, nil, nil
	}

	classes := make([]string, len(rule.Body))
	for i, c := range rule.Body {
		classes[i] = c.Class
	}
	weights := rule.PrecedentWeight
	if w, ok := d.Config.PrecedentWeights[rule.ID]; ok {
		weights = w
	}
	actx := AnnotationContext{Classes: classes, Weights: weights, Extra: d.Config.AnnotationContext}

	var proposals []Proposal
	var traces []TraceEntry
	for _, a := range assignments {
		head := a.ClauseIntervals
		iv := Apply(d.Logger, d.Metrics, rule.ID, rule.Annotation, head, actx, d.ExprRegistry)

		key, ok := headKey(rule, a.Vars)
		if !ok {
			return nil, nil, &domerr.EngineInternalError{Message: fmt.Sprintf("rule %s: head variable unbound after grounding", rule.ID)}
		}

		proposals = append(proposals, Proposal{Key: key, Interval: iv, Mode: rule.Mode, SetStatic: rule.Static, RuleID: rule.ID})
		if d.Config.EmitTrace {
			traces = append(traces, TraceEntry{T: t, Rule: rule.ID, Head: key, Clauses: clauseKeys(rule, a.Vars)})
		}
	}
	return proposals, traces, nil
}

func headKey(rule *domain.Rule, vars map[string]string) (domain.StmtKey, bool) {
	switch rule.HeadKind() {
	case domain.ClauseNode:
		if len(rule.HeadVars) == 0 {
			return "", false
		}
		v, ok := vars[rule.HeadVars[0]]
		if !ok {
			return "", false
		}
		return domain.NodeKey(rule.HeadLabel, v), true
	default:
		u, ok1 := vars[rule.HeadVars[0]]
		v, ok2 := vars[rule.HeadVars[1]]
		if !ok1 || !ok2 {
			return "", false
		}
		return domain.EdgeKey(rule.HeadLabel, u, v), true
	}
}

func clauseKeys(rule *domain.Rule, vars map[string]string) []domain.StmtKey {
	out := make([]domain.StmtKey, len(rule.Body))
	for i, c := range rule.Body {
		if c.Kind == domain.ClauseNode {
			out[i] = domain.NodeKey(c.Label, vars[c.Vars[0]])
		} else {
			out[i] = domain.EdgeKey(c.Label, vars[c.Vars[0]], vars[c.Vars[1]])
		}
	}
	return out
}

// applyMerged writes a step's merged proposals to FactsIndex, respecting
// static freeze and combining with the prior value via Config.DefaultMode
// (§4.9 step 4), and returns this step's facts_added/max_bound_delta.
func (d *Driver) applyMerged(t int, merged []MergedUpdate) (factsAdded int, maxBoundDelta float64, err error) {
	for _, m := range merged {
		label, targets, ok := domain.ParseKey(m.Key)
		if !ok {
			return 0, 0, &domerr.EngineInternalError{Message: fmt.Sprintf("malformed statement key %q", m.Key)}
		}

		existing, existed := d.Facts.Get(m.Key)
		newInterval := m.Interval
		if existed {
			switch d.Config.DefaultMode {
			case domain.ModeOverride:
				if !domain.Narrower(m.Interval, existing) {
					newInterval = existing
				}
			default:
				newInterval = domain.Meet(existing, m.Interval)
			}
		}

		var setErr error
		switch len(targets) {
		case 1:
			setErr = d.Facts.SetNode(label, targets[0], newInterval, m.SetStatic)
		case 2:
			setErr = d.Facts.SetEdge(label, targets[0], targets[1], newInterval, m.SetStatic)
		default:
			return 0, 0, &domerr.EngineInternalError{Message: fmt.Sprintf("statement key %q has %d targets", m.Key, len(targets))}
		}
		if setErr != nil {
			var sv *domerr.StaticViolation
			if ok := asStaticViolation(setErr, &sv); ok {
				sv.RuleID = joinRuleIDs(m.RuleIDs)
				sv.T = t
				if d.Metrics != nil {
					d.Metrics.IncStaticViolation()
				}
				d.Logger.Warn().Err(sv).Msg("skipped write to frozen fact")
				continue
			}
			return 0, 0, setErr
		}

		prevWidth := domain.Unknown.Width()
		if existed {
			prevWidth = existing.Width()
		}
		if !existed || !existing.Equal(newInterval) {
			factsAdded++
		}
		if delta := prevWidth - newInterval.Width(); delta > maxBoundDelta {
			maxBoundDelta = delta
		}
	}
	return factsAdded, maxBoundDelta, nil
}

func asStaticViolation(err error, out **domerr.StaticViolation) bool {
	if sv, ok := err.(*domerr.StaticViolation); ok {
		*out = sv
		return true
	}
	return false
}

func joinRuleIDs(ids []string) string {
	switch len(ids) {
	case 0:
		return ""
	case 1:
		return ids[0]
	default:
		out := ids[0]
		for _, id := range ids[1:] {
			out += "," + id
		}
		return out
	}
}

// resolveSupports implements the §8 support-soundness definition: a rule
// id belongs to supports[k] iff some grounding of it, at some step,
// proposed exactly the value k holds at the end of the run.
func resolveSupports(facts *domain.FactsIndex, provenance map[domain.StmtKey][]provEntry) map[domain.StmtKey][]string {
	out := make(map[domain.StmtKey][]string, len(provenance))
	for key, entries := range provenance {
		final, ok := facts.Get(key)
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for _, e := range entries {
			if e.interval.Equal(final) {
				seen[e.ruleID] = true
			}
		}
		if len(seen) == 0 {
			continue
		}
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[key] = ids
	}
	return out
}
