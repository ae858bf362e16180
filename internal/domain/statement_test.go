package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeAndEdgeKeyFormat(t *testing.T) {
	assert.Equal(t, StmtKey("Disability(p1)"), NodeKey("Disability", "p1"))
	assert.Equal(t, StmtKey("Cites(a,b)"), EdgeKey("Cites", "a", "b"))
}

func TestParseKeyRoundTrips(t *testing.T) {
	label, targets, ok := ParseKey(NodeKey("Disability", "p1"))
	assert.True(t, ok)
	assert.Equal(t, "Disability", label)
	assert.Equal(t, []string{"p1"}, targets)

	label, targets, ok = ParseKey(EdgeKey("Cites", "a", "b"))
	assert.True(t, ok)
	assert.Equal(t, "Cites", label)
	assert.Equal(t, []string{"a", "b"}, targets)
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	_, _, ok := ParseKey(StmtKey("NoParens"))
	assert.False(t, ok)

	_, _, ok = ParseKey(StmtKey("Empty()"))
	assert.False(t, ok)

	_, _, ok = ParseKey(StmtKey("TooMany(a,b,c)"))
	assert.False(t, ok)
}

func TestSortKeysIsLexicographic(t *testing.T) {
	keys := []StmtKey{"Z(1)", "A(2)", "A(1)"}
	SortKeys(keys)
	assert.Equal(t, []StmtKey{"A(1)", "A(2)", "Z(1)"}, keys)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("override")
	assert.True(t, ok)
	assert.Equal(t, ModeOverride, m)

	m, ok = ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeIntersection, m)

	_, ok = ParseMode("bogus")
	assert.False(t, ok)
}
