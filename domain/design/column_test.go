package design

import (
	"testing"

	"mscourse/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnsSplitsTimepointAndCondition(t *testing.T) {
	cols, err := ParseColumns([]string{"control_0h_1", "control_0h_2", "treatmentA_24h_1"}, "_")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.Equal(t, "0h", cols[0].TimeToken)
	assert.Equal(t, "control_1", cols[0].Condition)
	assert.Equal(t, "24h", cols[2].TimeToken)
	assert.Equal(t, "treatmentA_1", cols[2].Condition)
}

func TestParseColumnsRoundTrip(t *testing.T) {
	names := []string{"ctrl_0h_1", "drugA_high_4h_2", "drugA_low_24h_3"}
	for _, name := range names {
		cols, err := ParseColumns([]string{name}, "_")
		require.NoError(t, err)
		assert.Equal(t, name, cols[0].Reassemble())
	}
}

func TestParseColumnsCustomDelimiter(t *testing.T) {
	cols, err := ParseColumns([]string{"ctrl.0h.1"}, ".")
	require.NoError(t, err)
	assert.Equal(t, "0h", cols[0].TimeToken)
	assert.Equal(t, "ctrl.1", cols[0].Condition)
}

func TestParseColumnsTokenCountMismatchIsStructural(t *testing.T) {
	_, err := ParseColumns([]string{"ctrl_0h_1", "drugA_extra_0h_1"}, "_")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenMismatch)
	assert.True(t, core.IsStructural(err))
}

func TestParseColumnsSingleTokenIsStructural(t *testing.T) {
	_, err := ParseColumns([]string{"justonename"}, "_")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoTimepoint)
	assert.True(t, core.IsStructural(err))
}

func TestSelectMatchesByPrefix(t *testing.T) {
	cols, err := ParseColumns([]string{
		"control_0h_1",
		"treatmentA_0h_1",
		"treatmentAB_0h_1",
		"other_0h_1",
	}, "_")
	require.NoError(t, err)

	// "treatmentA" is a prefix of both treatmentA and treatmentAB columns.
	selected := Select(cols, []core.Condition{"treatmentA"})
	require.Len(t, selected, 2)
	assert.Equal(t, core.SampleName("treatmentA_0h_1"), selected[0].Name)
	assert.Equal(t, core.SampleName("treatmentAB_0h_1"), selected[1].Name)
}

func TestSelectPreservesColumnOrder(t *testing.T) {
	cols, err := ParseColumns([]string{"b_0h_1", "a_0h_1", "b_4h_1"}, "_")
	require.NoError(t, err)

	selected := Select(cols, []core.Condition{"a", "b"})
	require.Len(t, selected, 3)
	assert.Equal(t, core.SampleName("b_0h_1"), selected[0].Name)
	assert.Equal(t, core.SampleName("a_0h_1"), selected[1].Name)
}

func TestTimeTokensFirstSeenOrder(t *testing.T) {
	cols, err := ParseColumns([]string{"a_24h_1", "a_0h_1", "b_24h_1", "b_4h_1"}, "_")
	require.NoError(t, err)
	assert.Equal(t, []string{"24h", "0h", "4h"}, TimeTokens(cols))
}
