package design

import (
	"testing"

	"mscourse/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTimeAxisInfersUnitSuffix(t *testing.T) {
	axis, err := ExtractTimeAxis([]string{"24h", "0h", "4h"})
	require.NoError(t, err)

	assert.Equal(t, "h", axis.Unit)
	assert.Equal(t, []string{"0h", "4h", "24h"}, axis.Tokens())
	assert.Equal(t, 0.0, axis.Earliest().Value)

	v, ok := axis.ValueOf("24h")
	require.True(t, ok)
	assert.Equal(t, 24.0, v)
}

func TestExtractTimeAxisMultiCharUnit(t *testing.T) {
	axis, err := ExtractTimeAxis([]string{"30min", "5min", "120min"})
	require.NoError(t, err)

	assert.Equal(t, "min", axis.Unit)
	assert.Equal(t, []string{"5min", "30min", "120min"}, axis.Tokens())
}

func TestExtractTimeAxisOrderInvariant(t *testing.T) {
	perms := [][]string{
		{"0h", "4h", "24h"},
		{"24h", "4h", "0h"},
		{"4h", "24h", "0h"},
	}
	first, err := ExtractTimeAxis(perms[0])
	require.NoError(t, err)
	for _, p := range perms[1:] {
		axis, err := ExtractTimeAxis(p)
		require.NoError(t, err)
		assert.Equal(t, first, axis)
	}
}

func TestExtractTimeAxisPlainNumericTokens(t *testing.T) {
	// Fully numeric tokens parse without stripping anything, so the unit is
	// empty rather than "not found".
	axis, err := ExtractTimeAxis([]string{"10", "2", "0.5"})
	require.NoError(t, err)

	assert.Equal(t, "", axis.Unit)
	assert.Equal(t, []string{"0.5", "2", "10"}, axis.Tokens())
}

func TestExtractTimeAxisLexicographicFallback(t *testing.T) {
	// Unit inference consumes "early" without finding a number, and the tokens
	// are not plain numerics either, so ordering degrades to lexicographic.
	axis, err := ExtractTimeAxis([]string{"late", "early", "mid"})
	require.NoError(t, err)

	assert.Equal(t, UnitNotFound, axis.Unit)
	assert.Equal(t, []string{"early", "late", "mid"}, axis.Tokens())
	assert.Equal(t, 0.0, axis.Points[0].Value)
	assert.Equal(t, 2.0, axis.Points[2].Value)
}

func TestExtractTimeAxisUnitMismatchIsStructural(t *testing.T) {
	// Representative "0h" yields unit "h"; "xh" has no numeric prefix under it.
	_, err := ExtractTimeAxis([]string{"0h", "xh"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnparsableAxis)
	assert.True(t, core.IsStructural(err))
}

func TestExtractTimeAxisEmptyInput(t *testing.T) {
	_, err := ExtractTimeAxis(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnparsableAxis)
}

func TestExtractTimeAxisDeduplicatesTokens(t *testing.T) {
	axis, err := ExtractTimeAxis([]string{"0h", "0h", "4h", "4h"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0h", "4h"}, axis.Tokens())
}
