package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smilemakc/reason/internal/domain"
	domerr "github.com/smilemakc/reason/internal/domain/errors"
	"github.com/smilemakc/reason/internal/infrastructure/metrics"
)

// AnnotationContext is the per-evaluation environment an aggregator
// receives: the clause class tagged on each interval (parallel slice,
// "" when untagged) and the config-supplied weights/extra values
// (§6 `annotation_context`).
type AnnotationContext struct {
	Classes []string
	Weights map[string]float64
	Extra   map[string]any
}

// AnnotationFunc is a pure function from a rule's clause intervals to
// its head interval. It must never panic in well-written code, but
// Apply recovers regardless (§4.7/§7: AnnotationError, never fatal).
type AnnotationFunc func(intervals []domain.Interval, ctx AnnotationContext) domain.Interval

var registry = map[string]AnnotationFunc{
	"average":                   annAverage,
	"average_lower":             annAverageLower,
	"maximum":                   annMaximum,
	"minimum":                   annMinimum,
	"legal_burden_civil_051":    burden(0.51),
	"legal_burden_clear_075":    burden(0.75),
	"legal_burden_criminal_090": burden(0.90),
	"legal_conservative_min":    annMinimum,
	"precedent_weighted":        annPrecedentWeighted,
}

// Apply resolves and runs annotation name, converting a panic or an
// empty input list into a logged [0,1] result rather than propagating a
// failure (§4.7, §7 AnnotationError). rec may be nil: its increments are
// nil-safe the same way metrics.Recorder's other methods are.
func Apply(log zerolog.Logger, rec *metrics.Recorder, ruleID, name string, intervals []domain.Interval, ctx AnnotationContext, exprReg *ExprRegistry) (result domain.Interval) {
	if len(intervals) == 0 {
		log.Warn().Str("rule_id", ruleID).Str("annotation", name).Msg("annotation received no clause intervals")
		return domain.Unknown
	}

	defer func() {
		if r := recover(); r != nil {
			err := &domerr.AnnotationError{Annotation: name, RuleID: ruleID, Cause: fmt.Errorf("%v", r)}
			log.Warn().Err(err).Msg("annotation panicked")
			rec.IncAnnotationError()
			result = domain.Unknown
		}
	}()

	if fn, ok := registry[name]; ok {
		return fn(intervals, ctx)
	}
	if exprReg != nil {
		if iv, err := exprReg.Eval(name, intervals, ctx); err == nil {
			return iv
		} else {
			err := &domerr.AnnotationError{Annotation: name, RuleID: ruleID, Cause: err}
			log.Warn().Err(err).Msg("expr annotation failed")
			rec.IncAnnotationError()
			return domain.Unknown
		}
	}
	log.Warn().Str("rule_id", ruleID).Str("annotation", name).Msg("unknown annotation")
	rec.IncAnnotationError()
	return domain.Unknown
}

func lowers(ivs []domain.Interval) []float64 {
	out := make([]float64, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.L
	}
	return out
}

func uppers(ivs []domain.Interval) []float64 {
	out := make([]float64, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.U
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func annAverage(ivs []domain.Interval, _ AnnotationContext) domain.Interval {
	return domain.NewInterval(mean(lowers(ivs)), mean(uppers(ivs)))
}

func annAverageLower(ivs []domain.Interval, _ AnnotationContext) domain.Interval {
	return domain.NewInterval(mean(lowers(ivs)), maxOf(uppers(ivs)))
}

func annMaximum(ivs []domain.Interval, _ AnnotationContext) domain.Interval {
	return domain.NewInterval(maxOf(lowers(ivs)), maxOf(uppers(ivs)))
}

func annMinimum(ivs []domain.Interval, _ AnnotationContext) domain.Interval {
	return domain.NewInterval(minOf(lowers(ivs)), minOf(uppers(ivs)))
}

// burden builds the "legal_burden_*" family described in §4.7: the
// lower bound is a hard 0/1 pass on the mean of lower bounds; the upper
// bound passes the mean of upper bounds or else reports it as-is.
func burden(threshold float64) AnnotationFunc {
	return func(ivs []domain.Interval, _ AnnotationContext) domain.Interval {
		ml, mu := mean(lowers(ivs)), mean(uppers(ivs))
		l := 0.0
		if ml >= threshold {
			l = 1.0
		}
		u := mu
		if mu >= threshold {
			u = 1.0
		}
		return domain.NewInterval(l, u)
	}
}

// annPrecedentWeighted computes a weighted mean of bounds using the
// clause class tagged per interval. Weights default to 1 when the rule
// supplies none at all; when it does supply a weight map, a class
// absent from that map is weighted 0 (§4.7).
func annPrecedentWeighted(ivs []domain.Interval, ctx AnnotationContext) domain.Interval {
	n := len(ivs)
	weight := func(i int) float64 {
		class := ""
		if i < len(ctx.Classes) {
			class = ctx.Classes[i]
		}
		if len(ctx.Weights) == 0 {
			return 1
		}
		w, ok := ctx.Weights[class]
		if !ok || w < 0 {
			return 0
		}
		return w
	}

	var wsum, lsum, usum float64
	for i := 0; i < n; i++ {
		w := weight(i)
		wsum += w
		lsum += w * ivs[i].L
		usum += w * ivs[i].U
	}
	if wsum == 0 {
		return domain.Unknown
	}
	return domain.NewInterval(lsum/wsum, usum/wsum)
}
