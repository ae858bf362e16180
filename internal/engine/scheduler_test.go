package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/reason/internal/domain"
)

func TestMergeIntersectionFoldsAcrossRules(t *testing.T) {
	proposals := []Proposal{
		{Key: "L(n1)", Interval: domain.Interval{L: 0.2, U: 0.9}, Mode: domain.ModeIntersection, RuleID: "R2"},
		{Key: "L(n1)", Interval: domain.Interval{L: 0.5, U: 0.7}, Mode: domain.ModeIntersection, RuleID: "R1"},
	}
	merged := Merge(proposals)
	require.Len(t, merged, 1)
	assert.Equal(t, domain.Interval{L: 0.5, U: 0.7}, merged[0].Interval)
	assert.Equal(t, []string{"R1", "R2"}, merged[0].RuleIDs)
}

func TestMergeOverrideKeepsNarrowestWinner(t *testing.T) {
	proposals := []Proposal{
		{Key: "L(n1)", Interval: domain.Interval{L: 0.2, U: 0.9}, Mode: domain.ModeOverride, RuleID: "R1"},
		{Key: "L(n1)", Interval: domain.Interval{L: 0.5, U: 0.6}, Mode: domain.ModeOverride, RuleID: "R2"},
	}
	merged := Merge(proposals)
	require.Len(t, merged, 1)
	assert.Equal(t, domain.Interval{L: 0.5, U: 0.6}, merged[0].Interval)
}

func TestMergeOverrideTieBreaksByRuleIDIncumbentWins(t *testing.T) {
	// Equal widths: sorted group puts R1 (smaller id) first; R2 must not
	// displace it even though it arrives later in the unsorted input.
	proposals := []Proposal{
		{Key: "L(n1)", Interval: domain.Interval{L: 0.5, U: 0.75}, Mode: domain.ModeOverride, RuleID: "R2"},
		{Key: "L(n1)", Interval: domain.Interval{L: 0.25, U: 0.5}, Mode: domain.ModeOverride, RuleID: "R1"},
	}
	merged := Merge(proposals)
	require.Len(t, merged, 1)
	assert.Equal(t, domain.Interval{L: 0.25, U: 0.5}, merged[0].Interval)
}

func TestMergeSetStaticIsOredAcrossContributors(t *testing.T) {
	proposals := []Proposal{
		{Key: "L(n1)", Interval: domain.Interval{L: 0.5, U: 0.5}, Mode: domain.ModeIntersection, RuleID: "R1", SetStatic: false},
		{Key: "L(n1)", Interval: domain.Interval{L: 0.5, U: 0.5}, Mode: domain.ModeIntersection, RuleID: "R2", SetStatic: true},
	}
	merged := Merge(proposals)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].SetStatic)
}

func TestMergeGroupsAreSortedByStatementKey(t *testing.T) {
	proposals := []Proposal{
		{Key: "Z(1)", Interval: domain.Unknown, RuleID: "R1"},
		{Key: "A(1)", Interval: domain.Unknown, RuleID: "R1"},
	}
	merged := Merge(proposals)
	require.Len(t, merged, 2)
	assert.Equal(t, domain.StmtKey("A(1)"), merged[0].Key)
	assert.Equal(t, domain.StmtKey("Z(1)"), merged[1].Key)
}
