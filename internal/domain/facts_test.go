package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactsIndexGetAbsentIsUnknown(t *testing.T) {
	idx := NewFactsIndex()
	iv, ok := idx.GetNode("Disability", "p1")
	assert.False(t, ok)
	assert.Equal(t, Unknown, iv)
}

func TestFactsIndexSetAndGet(t *testing.T) {
	idx := NewFactsIndex()
	require.NoError(t, idx.SetNode("Disability", "p1", Interval{L: 0.7, U: 0.7}, false))
	iv, ok := idx.GetNode("Disability", "p1")
	require.True(t, ok)
	assert.Equal(t, Interval{L: 0.7, U: 0.7}, iv)
}

func TestFactsIndexStaticFreezeRejectsFurtherWrites(t *testing.T) {
	idx := NewFactsIndex()
	require.NoError(t, idx.SetNode("L", "n1", Interval{L: 1, U: 1}, true))
	assert.True(t, idx.IsStaticNode("L", "n1"))

	err := idx.SetNode("L", "n1", Interval{L: 0, U: 0}, false)
	require.Error(t, err)

	iv, _ := idx.GetNode("L", "n1")
	assert.Equal(t, Interval{L: 1, U: 1}, iv, "rejected write must not mutate the frozen fact")
}

func TestFactsIndexEdgeRoundTrip(t *testing.T) {
	idx := NewFactsIndex()
	require.NoError(t, idx.SetEdge("Cites", "a", "b", Interval{L: 0.2, U: 0.4}, false))
	iv, ok := idx.GetEdge("Cites", "a", "b")
	require.True(t, ok)
	assert.Equal(t, Interval{L: 0.2, U: 0.4}, iv)

	_, ok = idx.GetEdge("Cites", "b", "a")
	assert.False(t, ok, "edges are directed")
}

func TestFactsIndexGetResolvesKeyForm(t *testing.T) {
	idx := NewFactsIndex()
	require.NoError(t, idx.SetNode("L", "n1", Interval{L: 0.3, U: 0.5}, false))
	require.NoError(t, idx.SetEdge("E", "u", "v", Interval{L: 0.1, U: 0.2}, false))

	iv, ok := idx.Get(NodeKey("L", "n1"))
	require.True(t, ok)
	assert.Equal(t, Interval{L: 0.3, U: 0.5}, iv)

	iv, ok = idx.Get(EdgeKey("E", "u", "v"))
	require.True(t, ok)
	assert.Equal(t, Interval{L: 0.1, U: 0.2}, iv)
}

func TestFactsIndexIterLabelIsSorted(t *testing.T) {
	idx := NewFactsIndex()
	require.NoError(t, idx.SetNode("L", "c", Unknown, false))
	require.NoError(t, idx.SetNode("L", "a", Unknown, false))
	require.NoError(t, idx.SetNode("L", "b", Unknown, false))
	assert.Equal(t, []string{"a", "b", "c"}, idx.IterNodeLabel("L"))
}

func TestFactsIndexSnapshotClones(t *testing.T) {
	idx := NewFactsIndex()
	require.NoError(t, idx.SetNode("L", "n1", Interval{L: 0.5, U: 0.5}, false))
	snap := idx.Snapshot()
	require.NoError(t, idx.SetNode("L", "n1", Interval{L: 0.9, U: 0.9}, false))
	assert.Equal(t, Interval{L: 0.5, U: 0.5}, snap[NodeKey("L", "n1")], "snapshot must not alias live state")
}
