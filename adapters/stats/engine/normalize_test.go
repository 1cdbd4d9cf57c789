package engine

import (
	"math"
	"testing"

	"mscourse/domain/core"
	"mscourse/domain/diag"
	"mscourse/domain/table"
	"mscourse/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoCondMatrix builds a 2x2x2 design on log2 scale:
// control 0h=10, 4h=11; treatmentA 0h=10, 4h=14.
func twoCondMatrix(genes ...string) *table.IntensityTable {
	return testkit.BuildMatrix(testkit.MatrixSpec{
		Conditions: []string{"control", "treatmentA"},
		TimeTokens: []string{"0h", "4h"},
		Replicates: 2,
		Genes:      genes,
		Value: func(gene, cond string, timeIdx, rep int) float64 {
			if cond == "control" {
				return 10 + float64(timeIdx)
			}
			return 10 + 4*float64(timeIdx)
		},
	})
}

func foldChangeRequest(t *table.IntensityTable, genes ...string) NormalizationRequest {
	return NormalizationRequest{
		Table:            t,
		Genes:            testkit.GeneKeys(genes...),
		GeneListName:     "fixture",
		Conditions:       testkit.Conditions("treatmentA"),
		ControlCondition: "control",
		Logscale:         true,
	}
}

func findRecords(long table.LongTable, cond core.Condition, time float64) []table.LongRecord {
	var out []table.LongRecord
	for _, r := range long.Records {
		if r.Condition == cond && r.Time == time {
			out = append(out, r)
		}
	}
	return out
}

func TestFoldChangesBaselineArithmetic(t *testing.T) {
	eng := NewNormalizationEngine()
	dlog := diag.NewQuietLog()

	long, axis, err := eng.FoldChanges(foldChangeRequest(twoCondMatrix("G1", "G2"), "G1", "G2"), dlog)
	require.NoError(t, err)

	// 2 conditions x 2 timepoints x 2 replicates x 2 genes
	assert.Equal(t, 16, long.Len())
	assert.Equal(t, "h", axis.Unit)
	assert.Equal(t, 0.0, axis.Earliest().Value)

	// Control at its own baseline is exactly zero for every replicate.
	for _, r := range findRecords(long, "control", 0) {
		assert.Equal(t, 0.0, r.Value)
	}
	// Control away from baseline is measured against the baseline mean.
	for _, r := range findRecords(long, "control", 4) {
		assert.InDelta(t, 1.0, r.Value, 1e-12)
	}
	// Treatment fold changes relative to control at 0h.
	for _, r := range findRecords(long, "treatmentA", 4) {
		assert.InDelta(t, 4.0, r.Value, 1e-12)
	}
	for _, r := range findRecords(long, "treatmentA", 0) {
		assert.InDelta(t, 0.0, r.Value, 1e-12)
	}
	assert.Zero(t, dlog.Count())
}

func TestFoldChangesConstantMatrixIsAllZero(t *testing.T) {
	// Self-normalization: a flat matrix has nothing but baseline, so every
	// fold change is zero.
	m := testkit.BuildMatrix(testkit.MatrixSpec{
		Conditions: []string{"control", "treatmentA"},
		TimeTokens: []string{"0h", "4h"},
		Replicates: 2,
		Genes:      []string{"G1"},
		Value:      testkit.ConstantValue(10),
	})
	eng := NewNormalizationEngine()

	long, _, err := eng.FoldChanges(foldChangeRequest(m, "G1"), diag.NewQuietLog())
	require.NoError(t, err)

	assert.Equal(t, 8, long.Len())
	for _, r := range long.Records {
		assert.Equal(t, 0.0, r.Value)
	}
}

func TestFoldChangesRequiresControl(t *testing.T) {
	eng := NewNormalizationEngine()
	req := foldChangeRequest(twoCondMatrix("G1"), "G1")
	req.ControlCondition = ""

	_, _, err := eng.FoldChanges(req, diag.NewQuietLog())
	require.Error(t, err)
}

func TestFoldChangesMatchTimeNorm(t *testing.T) {
	eng := NewNormalizationEngine()
	req := foldChangeRequest(twoCondMatrix("G1"), "G1")
	req.MatchTimeNorm = true

	long, _, err := eng.FoldChanges(req, diag.NewQuietLog())
	require.NoError(t, err)

	// Baseline at 4h is the control mean at 4h (11), not at 0h (10).
	for _, r := range findRecords(long, "treatmentA", 4) {
		assert.InDelta(t, 3.0, r.Value, 1e-12)
	}
	for _, r := range findRecords(long, "control", 4) {
		assert.InDelta(t, 0.0, r.Value, 1e-12)
	}
}

func TestFoldChangesZeroFillsMissingConditionAtBaselineOnly(t *testing.T) {
	eng := NewNormalizationEngine()
	req := foldChangeRequest(twoCondMatrix("G1", "G2"), "G1", "G2")
	req.Conditions = testkit.Conditions("treatmentA", "treatmentB")
	dlog := diag.NewQuietLog()

	long, _, err := eng.FoldChanges(req, dlog)
	require.NoError(t, err)

	// treatmentB has no samples: zero-filled per gene at 0h, skipped at 4h.
	atBaseline := findRecords(long, "treatmentB", 0)
	require.Len(t, atBaseline, 2)
	for _, r := range atBaseline {
		assert.Equal(t, 0.0, r.Value)
	}
	assert.Empty(t, findRecords(long, "treatmentB", 4))
	assert.Equal(t, 2, dlog.Count(diag.KindMissingCondition))
}

func TestFoldChangesDropsAbsentGenesSilently(t *testing.T) {
	eng := NewNormalizationEngine()
	dlog := diag.NewQuietLog()

	long, _, err := eng.FoldChanges(foldChangeRequest(twoCondMatrix("G1"), "G1", "GHOST"), dlog)
	require.NoError(t, err)

	for _, r := range long.Records {
		assert.Equal(t, core.GeneKey("G1"), r.Gene)
	}
	assert.Zero(t, dlog.Count())
}

func TestFoldChangesEmptyGeneListIsRecoverable(t *testing.T) {
	eng := NewNormalizationEngine()
	dlog := diag.NewQuietLog()

	long, _, err := eng.FoldChanges(foldChangeRequest(twoCondMatrix("G1"), "GHOST"), dlog)
	require.NoError(t, err)
	assert.Zero(t, long.Len())
	assert.Equal(t, 1, dlog.Count(diag.KindEmptyInput))
}

func TestFoldChangesDropsMissingMeasurements(t *testing.T) {
	m := testkit.BuildMatrix(testkit.MatrixSpec{
		Conditions: []string{"control", "treatmentA"},
		TimeTokens: []string{"0h", "4h"},
		Replicates: 2,
		Genes:      []string{"G1"},
		Value: func(gene, cond string, timeIdx, rep int) float64 {
			if cond == "treatmentA" && timeIdx == 1 && rep == 2 {
				return testkit.NaN()
			}
			return 10
		},
	})
	eng := NewNormalizationEngine()

	long, _, err := eng.FoldChanges(foldChangeRequest(m, "G1"), diag.NewQuietLog())
	require.NoError(t, err)

	// 8 cells minus the one missing replicate.
	assert.Equal(t, 7, long.Len())
	assert.Len(t, findRecords(long, "treatmentA", 4), 1)
}

func TestFoldChangesLog2TransformsLinearInput(t *testing.T) {
	m := testkit.BuildMatrix(testkit.MatrixSpec{
		Conditions: []string{"control", "treatmentA"},
		TimeTokens: []string{"0h", "4h"},
		Replicates: 2,
		Genes:      []string{"G1"},
		Value: func(gene, cond string, timeIdx, rep int) float64 {
			if cond == "treatmentA" && timeIdx == 1 {
				return 4096 // 2^12 vs control baseline 2^10
			}
			return 1024
		},
	})
	eng := NewNormalizationEngine()
	req := foldChangeRequest(m, "G1")
	req.Logscale = false

	long, _, err := eng.FoldChanges(req, diag.NewQuietLog())
	require.NoError(t, err)

	for _, r := range findRecords(long, "treatmentA", 4) {
		assert.InDelta(t, 2.0, r.Value, 1e-12)
	}
}

func TestFoldChangesNonPositiveLinearValuesBecomeMissing(t *testing.T) {
	m := testkit.BuildMatrix(testkit.MatrixSpec{
		Conditions: []string{"control", "treatmentA"},
		TimeTokens: []string{"0h", "4h"},
		Replicates: 2,
		Genes:      []string{"G1"},
		Value: func(gene, cond string, timeIdx, rep int) float64 {
			if cond == "treatmentA" && timeIdx == 1 && rep == 1 {
				return -5
			}
			return 1024
		},
	})
	eng := NewNormalizationEngine()
	req := foldChangeRequest(m, "G1")
	req.Logscale = false

	long, _, err := eng.FoldChanges(req, diag.NewQuietLog())
	require.NoError(t, err)

	assert.Equal(t, 7, long.Len())
	for _, r := range long.Records {
		assert.False(t, math.IsNaN(r.Value))
	}
}

func TestIntensitiesNeverSynthesizeRows(t *testing.T) {
	eng := NewNormalizationEngine()
	req := NormalizationRequest{
		Table:        twoCondMatrix("G1"),
		Genes:        testkit.GeneKeys("G1"),
		GeneListName: "fixture",
		Conditions:   testkit.Conditions("treatmentA", "treatmentB"),
		Logscale:     true,
	}
	dlog := diag.NewQuietLog()

	long, _, err := eng.Intensities(req, dlog)
	require.NoError(t, err)

	// Only real treatmentA measurements; treatmentB yields diagnostics at both
	// timepoints and no records at all.
	assert.Equal(t, 4, long.Len())
	assert.Empty(t, findRecords(long, "treatmentB", 0))
	assert.Equal(t, 2, dlog.Count(diag.KindMissingCondition))

	for _, r := range findRecords(long, "treatmentA", 0) {
		assert.Equal(t, 10.0, r.Value)
	}
	for _, r := range findRecords(long, "treatmentA", 4) {
		assert.Equal(t, 14.0, r.Value)
	}
}

func TestIntensitiesDoNotIncludeUnrequestedControl(t *testing.T) {
	eng := NewNormalizationEngine()
	req := NormalizationRequest{
		Table:            twoCondMatrix("G1"),
		Genes:            testkit.GeneKeys("G1"),
		Conditions:       testkit.Conditions("treatmentA"),
		ControlCondition: "control",
		Logscale:         true,
	}

	long, _, err := eng.Intensities(req, diag.NewQuietLog())
	require.NoError(t, err)

	assert.Empty(t, findRecords(long, "control", 0))
	assert.Empty(t, findRecords(long, "control", 4))
	assert.Equal(t, 4, long.Len())
}
