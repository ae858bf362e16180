package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/smilemakc/reason/internal/domain"
	"github.com/smilemakc/reason/internal/infrastructure/metrics"
)

func ivs(pairs ...[2]float64) []domain.Interval {
	out := make([]domain.Interval, len(pairs))
	for i, p := range pairs {
		out[i] = domain.Interval{L: p[0], U: p[1]}
	}
	return out
}

func TestAnnAverage(t *testing.T) {
	got := annAverage(ivs([2]float64{0.2, 0.4}, [2]float64{0.6, 0.8}), AnnotationContext{})
	assert.InDelta(t, 0.4, got.L, 1e-9)
	assert.InDelta(t, 0.6, got.U, 1e-9)
}

func TestAnnMaximumAndMinimum(t *testing.T) {
	in := ivs([2]float64{0.2, 0.9}, [2]float64{0.5, 0.3})
	max := annMaximum(in, AnnotationContext{})
	assert.Equal(t, domain.Interval{L: 0.5, U: 0.9}, max)
	min := annMinimum(in, AnnotationContext{})
	assert.Equal(t, domain.Interval{L: 0.2, U: 0.3}, min)
}

func TestBurdenCivil051(t *testing.T) {
	fn := burden(0.51)
	got := fn(ivs([2]float64{0.6, 0.6}, [2]float64{0.5, 0.5}), AnnotationContext{})
	// mean lower = 0.55 >= 0.51 -> L=1; mean upper = 0.55 >= 0.51 -> U=1
	assert.Equal(t, domain.Interval{L: 1, U: 1}, got)

	got2 := fn(ivs([2]float64{0.1, 0.1}, [2]float64{0.3, 0.3}), AnnotationContext{})
	assert.Equal(t, domain.Interval{L: 0, U: 0.2}, got2)
}

func TestPrecedentWeightedDefaultsToUniform(t *testing.T) {
	ctx := AnnotationContext{Classes: []string{"a", "b"}}
	got := annPrecedentWeighted(ivs([2]float64{0.2, 0.2}, [2]float64{0.8, 0.8}), ctx)
	assert.InDelta(t, 0.5, got.L, 1e-9)
}

func TestPrecedentWeightedMissingClassIsZeroWeighted(t *testing.T) {
	ctx := AnnotationContext{
		Classes: []string{"controlling", "persuasive"},
		Weights: map[string]float64{"controlling": 3},
	}
	got := annPrecedentWeighted(ivs([2]float64{0.9, 0.9}, [2]float64{0.1, 0.1}), ctx)
	// persuasive gets weight 0 (absent from map), so result == the controlling clause alone
	assert.Equal(t, domain.Interval{L: 0.9, U: 0.9}, got)
}

func TestPrecedentWeightedAllZeroWeightsYieldsUnknown(t *testing.T) {
	ctx := AnnotationContext{Classes: []string{"x"}, Weights: map[string]float64{}}
	got := annPrecedentWeighted(ivs([2]float64{0.9, 0.9}), ctx)
	assert.Equal(t, domain.Unknown, got)
}

func TestApplyEmptyIntervalsReturnsUnknown(t *testing.T) {
	got := Apply(zerolog.Nop(), nil, "R1", "maximum", nil, AnnotationContext{}, nil)
	assert.Equal(t, domain.Unknown, got)
}

func TestApplyUnknownAnnotationWithoutExprRegistryReturnsUnknown(t *testing.T) {
	rec := metrics.New(nil)
	got := Apply(zerolog.Nop(), rec, "R1", "not_a_real_annotation", ivs([2]float64{0.1, 0.2}), AnnotationContext{}, nil)
	assert.Equal(t, domain.Unknown, got)
}

func TestApplyExprAggregator(t *testing.T) {
	reg := NewExprRegistry(0)
	reg.Register("expr:avg_plus_tenth", "[lowers[0] + 0.1, uppers[0] + 0.1]")
	got := Apply(zerolog.Nop(), nil, "R1", "expr:avg_plus_tenth", ivs([2]float64{0.3, 0.4}), AnnotationContext{}, reg)
	assert.Equal(t, domain.Interval{L: 0.4, U: 0.5}, got)
}

func TestApplyRecoversFromPanickingAnnotation(t *testing.T) {
	orig := registry["maximum"]
	registry["__panics"] = func(_ []domain.Interval, _ AnnotationContext) domain.Interval {
		panic("boom")
	}
	defer delete(registry, "__panics")
	_ = orig

	rec := metrics.New(nil)
	got := Apply(zerolog.Nop(), rec, "R1", "__panics", ivs([2]float64{0.1, 0.2}), AnnotationContext{}, nil)
	assert.Equal(t, domain.Unknown, got)
}
