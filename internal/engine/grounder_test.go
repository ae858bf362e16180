package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/reason/internal/domain"
)

func TestGroundNodeRuleEnumeratesSatisfyingNodes(t *testing.T) {
	facts := domain.NewFactsIndex()
	require.NoError(t, facts.SetNode("Disability", "p1", domain.Interval{L: 0.8, U: 0.8}, false))
	require.NoError(t, facts.SetNode("Disability", "p2", domain.Interval{L: 0.1, U: 0.1}, false))

	rule := &domain.Rule{
		ID:        "R1",
		HeadLabel: "Qualifies",
		HeadVars:  []string{"p"},
		Body: []domain.Clause{
			{Kind: domain.ClauseNode, Label: "Disability", Vars: []string{"p"}, Op: domain.OpGE, Threshold: 0.7},
		},
	}

	assignments := Ground(rule, facts)
	require.Len(t, assignments, 1)
	assert.Equal(t, "p1", assignments[0].Vars["p"])
	assert.Equal(t, domain.Interval{L: 0.8, U: 0.8}, assignments[0].ClauseIntervals[0])
}

func TestGroundEdgeRuleBothEndpointsUnbound(t *testing.T) {
	facts := domain.NewFactsIndex()
	require.NoError(t, facts.SetEdge("Cites", "a", "b", domain.Interval{L: 0.9, U: 0.9}, false))
	require.NoError(t, facts.SetEdge("Cites", "b", "c", domain.Interval{L: 0.9, U: 0.9}, false))

	rule := &domain.Rule{
		ID:        "R1",
		HeadLabel: "Related",
		HeadVars:  []string{"x", "y"},
		Body: []domain.Clause{
			{Kind: domain.ClauseEdge, Label: "Cites", Vars: []string{"x", "y"}, Op: domain.OpGE, Threshold: 0.5},
		},
	}

	assignments := Ground(rule, facts)
	require.Len(t, assignments, 2)
}

func TestGroundSelfLoopVariableRequiresEqualEndpoints(t *testing.T) {
	facts := domain.NewFactsIndex()
	require.NoError(t, facts.SetEdge("Cites", "a", "a", domain.Interval{L: 0.9, U: 0.9}, false))
	require.NoError(t, facts.SetEdge("Cites", "a", "b", domain.Interval{L: 0.9, U: 0.9}, false))

	rule := &domain.Rule{
		ID:        "R1",
		HeadLabel: "SelfCites",
		HeadVars:  []string{"x"},
		Body: []domain.Clause{
			{Kind: domain.ClauseEdge, Label: "Cites", Vars: []string{"x", "x"}, Op: domain.OpGE, Threshold: 0.5},
		},
	}

	assignments := Ground(rule, facts)
	require.Len(t, assignments, 1)
	assert.Equal(t, "a", assignments[0].Vars["x"])
}

func TestGroundUnknownLabelYieldsNoAssignments(t *testing.T) {
	facts := domain.NewFactsIndex()
	rule := &domain.Rule{
		ID:        "R1",
		HeadLabel: "Head",
		HeadVars:  []string{"p"},
		Body: []domain.Clause{
			{Kind: domain.ClauseNode, Label: "NoSuchLabel", Vars: []string{"p"}, Op: domain.OpGE, Threshold: 0.1},
		},
	}
	assert.Empty(t, Ground(rule, facts))
}

// TestGroundConsumesDerivedFactNeverWrittenToGraph is the forward-
// chaining regression: a fact that exists only in FactsIndex (as a
// rule head update would land, since applying a proposal never touches
// the graph's label index) must still be enumerable as a later rule's
// body clause.
func TestGroundConsumesDerivedFactNeverWrittenToGraph(t *testing.T) {
	facts := domain.NewFactsIndex()
	require.NoError(t, facts.SetNode("AccommodationRequired", "p1", domain.Interval{L: 1, U: 1}, false))

	rule := &domain.Rule{
		ID:        "R2",
		HeadLabel: "MustProvide",
		HeadVars:  []string{"p"},
		Body: []domain.Clause{
			{Kind: domain.ClauseNode, Label: "AccommodationRequired", Vars: []string{"p"}, Op: domain.OpGE, Threshold: 0.5},
		},
	}

	assignments := Ground(rule, facts)
	require.Len(t, assignments, 1)
	assert.Equal(t, "p1", assignments[0].Vars["p"])
}

// TestGroundDoesNotEnumerateAbsentFactEntries enforces §3 invariant
// (iii): a node present in the working set under a different label must
// not be enumerated for a clause whose label it never received a fact
// entry for, even though an absent key evaluates to Unknown ([0,1]) for
// a fully-bound lookup.
func TestGroundDoesNotEnumerateAbsentFactEntries(t *testing.T) {
	facts := domain.NewFactsIndex()
	require.NoError(t, facts.SetNode("OtherLabel", "p1", domain.Interval{L: 0.9, U: 0.9}, false))

	rule := &domain.Rule{
		ID:        "R1",
		HeadLabel: "Head",
		HeadVars:  []string{"p"},
		Body: []domain.Clause{
			{Kind: domain.ClauseNode, Label: "NeverSet", Vars: []string{"p"}, Op: domain.OpGE, Threshold: 0},
		},
	}
	assert.Empty(t, Ground(rule, facts), "absent keys must never be enumerated, even at threshold 0 where Unknown would pass")
}

func TestOrderClausesPutsNodeClausesFirstAndNarrowerCardinalityFirst(t *testing.T) {
	facts := domain.NewFactsIndex()
	require.NoError(t, facts.SetNode("Big", "n1", domain.Unknown, false))
	require.NoError(t, facts.SetNode("Big", "n2", domain.Unknown, false))
	require.NoError(t, facts.SetNode("Big", "n3", domain.Unknown, false))
	require.NoError(t, facts.SetNode("Small", "n1", domain.Unknown, false))
	require.NoError(t, facts.SetEdge("E", "n1", "n2", domain.Unknown, false))

	body := []domain.Clause{
		{Kind: domain.ClauseEdge, Label: "E", Vars: []string{"x", "y"}},
		{Kind: domain.ClauseNode, Label: "Big", Vars: []string{"x"}},
		{Kind: domain.ClauseNode, Label: "Small", Vars: []string{"x"}},
	}
	order := orderClauses(body, facts)
	assert.Equal(t, []int{2, 1, 0}, order, "Small (card 1) before Big (card 3) before the edge clause")
}
