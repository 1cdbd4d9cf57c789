package table

import (
	"math"
	"sort"

	"mscourse/domain/core"
)

// LongRecord is the atomic unit of the reshaped table: one replicate
// measurement for one gene at one (time, condition). Value is either a log2
// fold change or a plain intensity depending on the normalization variant.
// Records are never mutated after creation.
type LongRecord struct {
	Time      float64
	Condition core.Condition
	Gene      core.GeneKey
	Value     float64
}

// LongTable is an append-only collection of LongRecords.
type LongTable struct {
	Records []LongRecord
}

// Append adds a record.
func (t *LongTable) Append(r LongRecord) {
	t.Records = append(t.Records, r)
}

// DropNA returns a new table without NaN values.
func (t LongTable) DropNA() LongTable {
	out := LongTable{Records: make([]LongRecord, 0, len(t.Records))}
	for _, r := range t.Records {
		if !math.IsNaN(r.Value) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Len returns the record count.
func (t LongTable) Len() int { return len(t.Records) }

// Conditions returns the distinct conditions, sorted.
func (t LongTable) Conditions() []core.Condition {
	seen := make(map[core.Condition]bool)
	var out []core.Condition
	for _, r := range t.Records {
		if !seen[r.Condition] {
			seen[r.Condition] = true
			out = append(out, r.Condition)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Genes returns the distinct genes in first-seen order.
func (t LongTable) Genes() []core.GeneKey {
	seen := make(map[core.GeneKey]bool)
	var out []core.GeneKey
	for _, r := range t.Records {
		if !seen[r.Gene] {
			seen[r.Gene] = true
			out = append(out, r.Gene)
		}
	}
	return out
}

// ForGene returns the records of one gene, preserving order.
func (t LongTable) ForGene(gene core.GeneKey) []LongRecord {
	var out []LongRecord
	for _, r := range t.Records {
		if r.Gene == gene {
			out = append(out, r)
		}
	}
	return out
}
