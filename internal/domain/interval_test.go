package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntervalClampsAndCollapses(t *testing.T) {
	assert.Equal(t, Interval{L: 0, U: 1}, NewInterval(-5, 5))
	assert.Equal(t, Unknown, NewInterval(0.8, 0.2))
}

func TestMeetCollapsesWhenDisjoint(t *testing.T) {
	a := Interval{L: 0, U: 0.3}
	b := Interval{L: 0.6, U: 1}
	assert.Equal(t, Unknown, Meet(a, b))
}

func TestMeetNarrowsOverlap(t *testing.T) {
	a := Interval{L: 0.2, U: 0.8}
	b := Interval{L: 0.5, U: 0.9}
	assert.Equal(t, Interval{L: 0.5, U: 0.8}, Meet(a, b))
}

func TestNarrowerTieBreak(t *testing.T) {
	narrow := Interval{L: 0.4, U: 0.6}
	wide := Interval{L: 0.1, U: 0.9}
	assert.True(t, Narrower(narrow, wide))
	assert.False(t, Narrower(wide, narrow))

	// equal width, smaller L wins
	a := Interval{L: 0.25, U: 0.5}
	b := Interval{L: 0.5, U: 0.75}
	assert.True(t, Narrower(a, b))
	assert.False(t, Narrower(b, a))

	// identical intervals: neither is narrower than the other
	assert.False(t, Narrower(a, a))
}

func TestContainsThreshold(t *testing.T) {
	iv := Interval{L: 0.6, U: 0.9}
	assert.True(t, ContainsThreshold(iv, OpGE, 0.5))
	assert.False(t, ContainsThreshold(iv, OpGE, 0.7))
	assert.True(t, ContainsThreshold(iv, OpLE, 0.95))
	assert.False(t, ContainsThreshold(Interval{L: 0.4, U: 0.4}, OpEQ, 0.5))
	assert.True(t, ContainsThreshold(Interval{L: 0.4, U: 0.4}, OpEQ, 0.4))
}

func TestIntervalMarshalJSONSixDigitsHalfToEven(t *testing.T) {
	iv := Interval{L: 0.5099995, U: 1}
	raw, err := json.Marshal(iv)
	require.NoError(t, err)
	assert.Equal(t, `[0.510000,1.000000]`, string(raw))

	// exact half, even floor -> stays (0.0000005 rounds to 0.000000)
	iv2 := Interval{L: 0.0000005, U: 0.0000015}
	raw2, err := json.Marshal(iv2)
	require.NoError(t, err)
	assert.Equal(t, `[0.000000,0.000002]`, string(raw2))
}
