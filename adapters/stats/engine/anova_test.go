package engine

import (
	"math"
	"sort"
	"testing"

	"mscourse/domain/core"
	"mscourse/domain/table"
	internalerrors "mscourse/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anovaFixture builds a balanced two-timepoint design with two replicates per
// cell. Each condition repeats the same replicate pair at both timepoints, so
// there is no time effect unless the caller adds one.
func anovaFixture(groups map[string][2]float64) []table.LongRecord {
	conds := make([]string, 0, len(groups))
	for c := range groups {
		conds = append(conds, c)
	}
	sort.Strings(conds)

	var out []table.LongRecord
	for _, cond := range conds {
		vals := groups[cond]
		for _, tp := range []float64{0, 4} {
			for _, v := range vals {
				out = append(out, table.LongRecord{
					Time:      tp,
					Condition: core.Condition(cond),
					Gene:      "G1",
					Value:     v,
				})
			}
		}
	}
	return out
}

func TestFitTwoWayANOVARequiresTwoFactorLevels(t *testing.T) {
	// Single condition.
	_, err := fitTwoWayANOVA(anovaFixture(map[string][2]float64{"alpha": {10, 10.2}}))
	require.Error(t, err)
	assert.Equal(t, internalerrors.CodeDegenerateModel, internalerrors.GetCode(err))

	// Single timepoint.
	records := []table.LongRecord{
		{Time: 0, Condition: "alpha", Gene: "G1", Value: 10},
		{Time: 0, Condition: "alpha", Gene: "G1", Value: 10.2},
		{Time: 0, Condition: "beta", Gene: "G1", Value: 12},
		{Time: 0, Condition: "beta", Gene: "G1", Value: 12.2},
	}
	_, err = fitTwoWayANOVA(records)
	require.Error(t, err)
	assert.Equal(t, internalerrors.CodeDegenerateModel, internalerrors.GetCode(err))
}

func TestFitTwoWayANOVANoResidualDF(t *testing.T) {
	records := []table.LongRecord{
		{Time: 0, Condition: "alpha", Gene: "G1", Value: 10},
		{Time: 0, Condition: "beta", Gene: "G1", Value: 12},
		{Time: 4, Condition: "alpha", Gene: "G1", Value: 11},
	}
	_, err := fitTwoWayANOVA(records)
	require.Error(t, err)
	assert.Equal(t, internalerrors.CodeDegenerateModel, internalerrors.GetCode(err))
}

func TestFitTwoWayANOVAZeroResidualVariance(t *testing.T) {
	// Perfectly additive data with one replicate per cell leaves no residual
	// variance to test against.
	records := []table.LongRecord{
		{Time: 0, Condition: "alpha", Gene: "G1", Value: 10},
		{Time: 4, Condition: "alpha", Gene: "G1", Value: 13},
		{Time: 0, Condition: "beta", Gene: "G1", Value: 12},
		{Time: 4, Condition: "beta", Gene: "G1", Value: 15},
	}
	_, err := fitTwoWayANOVA(records)
	require.Error(t, err)
	assert.Equal(t, internalerrors.CodeDegenerateModel, internalerrors.GetCode(err))
}

func TestFitTwoWayANOVAStrongConditionEffect(t *testing.T) {
	fit, err := fitTwoWayANOVA(anovaFixture(map[string][2]float64{
		"alpha": {10.0, 10.1},
		"beta":  {15.0, 15.1},
	}))
	require.NoError(t, err)

	assert.Less(t, fit.pCondition, 0.01)
	// No time effect in this fixture.
	assert.Greater(t, fit.pTime, 0.5)

	assert.Equal(t, []core.Condition{"alpha", "beta"}, fit.conditions)
	assert.Equal(t, []float64{0, 4}, fit.times)
	assert.Equal(t, 4, fit.condSizes["alpha"])
	assert.InDelta(t, 10.05, fit.condMeans["alpha"], 1e-12)
	assert.InDelta(t, 15.05, fit.condMeans["beta"], 1e-12)
	assert.Equal(t, 5, fit.dfResidual)
}

func TestFitTwoWayANOVANullFactorStaysFinite(t *testing.T) {
	// With zero time effect the nested fits explain identical variance and the
	// sequential SS difference can round to a tiny negative number. The F
	// statistic must floor at zero (p = 1), never degrade to NaN.
	fit, err := fitTwoWayANOVA(anovaFixture(map[string][2]float64{
		"alpha": {10.0, 10.1},
		"beta":  {15.0, 15.1},
	}))
	require.NoError(t, err)

	assert.False(t, math.IsNaN(fit.pTime))
	assert.False(t, math.IsNaN(fit.pCondition))
	assert.Greater(t, fit.pTime, 0.99)
	assert.Less(t, fit.pCondition, 1e-6)
}

func TestFitTwoWayANOVATimeEffect(t *testing.T) {
	var records []table.LongRecord
	for _, cond := range []string{"alpha", "beta"} {
		for ti, tp := range []float64{0, 4} {
			for _, jitter := range []float64{0, 0.1} {
				records = append(records, table.LongRecord{
					Time:      tp,
					Condition: core.Condition(cond),
					Gene:      "G1",
					Value:     10 + 5*float64(ti) + jitter,
				})
			}
		}
	}
	fit, err := fitTwoWayANOVA(records)
	require.NoError(t, err)

	assert.Less(t, fit.pTime, 0.01)
	assert.Greater(t, fit.pCondition, 0.5)
}
