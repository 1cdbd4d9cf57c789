package table

import (
	"fmt"
	"math"

	"mscourse/domain/core"
)

// IntensityTable is the wide input matrix: one row per gene, one column per
// sample, values on log2 scale unless the caller says otherwise. Missing
// measurements are NaN.
type IntensityTable struct {
	Genes   []core.GeneKey
	Columns []string
	Values  [][]float64 // rows x columns, NaN = missing

	index map[core.GeneKey]int
}

// NewIntensityTable creates an empty table with the given sample columns.
func NewIntensityTable(columns []string) *IntensityTable {
	return &IntensityTable{
		Columns: columns,
		index:   make(map[core.GeneKey]int),
	}
}

// AddRow appends one gene row. The value slice must match the column count.
func (t *IntensityTable) AddRow(gene core.GeneKey, values []float64) error {
	if len(values) != len(t.Columns) {
		return core.NewValidationError("values",
			fmt.Sprintf("row %s has %d values, expected %d", gene, len(values), len(t.Columns)))
	}
	if _, dup := t.index[gene]; dup {
		return core.NewValidationError("gene", fmt.Sprintf("duplicate row %s", gene))
	}
	t.index[gene] = len(t.Genes)
	t.Genes = append(t.Genes, gene)
	t.Values = append(t.Values, values)
	return nil
}

// Row returns the values for a gene, or false if the gene is absent.
func (t *IntensityTable) Row(gene core.GeneKey) ([]float64, bool) {
	i, ok := t.index[gene]
	if !ok {
		return nil, false
	}
	return t.Values[i], true
}

// Value returns the measurement for (gene, column index). NaN when the gene
// is absent.
func (t *IntensityTable) Value(gene core.GeneKey, col int) float64 {
	row, ok := t.Row(gene)
	if !ok || col < 0 || col >= len(row) {
		return math.NaN()
	}
	return row[col]
}

// ColumnIndex returns the position of a sample column name.
func (t *IntensityTable) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// HasGene reports whether the gene has a row.
func (t *IntensityTable) HasGene(gene core.GeneKey) bool {
	_, ok := t.index[gene]
	return ok
}

// RowCount returns the number of gene rows.
func (t *IntensityTable) RowCount() int { return len(t.Genes) }

// ColumnCount returns the number of sample columns.
func (t *IntensityTable) ColumnCount() int { return len(t.Columns) }

// Validate ensures the table is internally consistent and non-empty.
func (t *IntensityTable) Validate() error {
	if len(t.Genes) == 0 || len(t.Columns) == 0 {
		return core.ErrEmptyTable
	}
	for i, row := range t.Values {
		if len(row) != len(t.Columns) {
			return core.NewValidationError("values",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(t.Columns)))
		}
	}
	return nil
}
