// Package testkit provides deterministic fixture builders for analysis tests.
package testkit

import (
	"fmt"
	"math"

	"mscourse/domain/core"
	"mscourse/domain/table"
)

// SampleName builds a sample column name like "A_4h_1".
func SampleName(condition, timeToken string, replicate int) string {
	return fmt.Sprintf("%s_%s_%d", condition, timeToken, replicate)
}

// MatrixSpec describes a synthetic wide intensity matrix.
type MatrixSpec struct {
	Conditions []string
	TimeTokens []string
	Replicates int
	Genes      []string
	// Value computes the cell for (gene, condition, timeIdx, replicate).
	// Return NaN for a missing measurement.
	Value func(gene, condition string, timeIdx, replicate int) float64
}

// BuildMatrix materializes the spec as an IntensityTable with column names in
// condition-major, time-minor, replicate-innermost order.
func BuildMatrix(spec MatrixSpec) *table.IntensityTable {
	var columns []string
	for _, cond := range spec.Conditions {
		for _, tt := range spec.TimeTokens {
			for rep := 1; rep <= spec.Replicates; rep++ {
				columns = append(columns, SampleName(cond, tt, rep))
			}
		}
	}
	t := table.NewIntensityTable(columns)
	for _, gene := range spec.Genes {
		values := make([]float64, 0, len(columns))
		for _, cond := range spec.Conditions {
			for ti := range spec.TimeTokens {
				for rep := 1; rep <= spec.Replicates; rep++ {
					values = append(values, spec.Value(gene, cond, ti, rep))
				}
			}
		}
		if err := t.AddRow(core.GeneKey(gene), values); err != nil {
			panic(err)
		}
	}
	return t
}

// ConstantValue returns a Value function yielding the same measurement
// everywhere.
func ConstantValue(v float64) func(string, string, int, int) float64 {
	return func(string, string, int, int) float64 { return v }
}

// GeneKeys converts plain names to keys.
func GeneKeys(names ...string) []core.GeneKey {
	out := make([]core.GeneKey, len(names))
	for i, n := range names {
		out[i] = core.GeneKey(n)
	}
	return out
}

// Conditions converts plain names to conditions.
func Conditions(names ...string) []core.Condition {
	out := make([]core.Condition, len(names))
	for i, n := range names {
		out[i] = core.Condition(n)
	}
	return out
}

// LongFixture builds a long table from (time, condition, gene, values...)
// tuples, one record per value.
type LongFixture struct {
	t table.LongTable
}

// NewLongFixture creates an empty fixture.
func NewLongFixture() *LongFixture {
	return &LongFixture{}
}

// Add appends one replicate group.
func (f *LongFixture) Add(time float64, condition, gene string, values ...float64) *LongFixture {
	for _, v := range values {
		f.t.Append(table.LongRecord{
			Time:      time,
			Condition: core.Condition(condition),
			Gene:      core.GeneKey(gene),
			Value:     v,
		})
	}
	return f
}

// Table returns the assembled long table.
func (f *LongFixture) Table() table.LongTable {
	return f.t
}

// NaN is a convenience for missing cells in matrix specs.
func NaN() float64 {
	return math.NaN()
}
