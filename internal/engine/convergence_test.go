package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConvergence(t *testing.T) {
	p, err := ParseConvergence("perfect")
	require.NoError(t, err)
	assert.Equal(t, Perfect{}, p)

	p, err = ParseConvergence("delta_interpretation:2")
	require.NoError(t, err)
	assert.Equal(t, DeltaInterpretation{K: 2}, p)
	assert.True(t, p.Converged(2, 0.9))
	assert.False(t, p.Converged(3, 0))

	p, err = ParseConvergence("delta_bound:0.01")
	require.NoError(t, err)
	assert.Equal(t, DeltaBound{Epsilon: 0.01}, p)
	assert.True(t, p.Converged(99, 0.01))
	assert.False(t, p.Converged(0, 0.02))
}

func TestParseConvergenceRejectsGarbage(t *testing.T) {
	_, err := ParseConvergence("nonsense")
	assert.Error(t, err)

	_, err = ParseConvergence("delta_interpretation:not_a_number")
	assert.Error(t, err)

	_, err = ParseConvergence("delta_bound:not_a_number")
	assert.Error(t, err)
}

func TestPerfectNeverConverges(t *testing.T) {
	assert.False(t, (Perfect{}).Converged(0, 0))
}
