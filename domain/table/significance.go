package table

import (
	"strconv"

	"mscourse/domain/core"
)

// PValue is a nullable p-value. Placeholder rows synthesized for untestable
// genes carry an invalid PValue, which keeps the pairwise matrix rectangular
// without inventing numbers.
type PValue struct {
	Float64 float64
	Valid   bool
}

// NewPValue wraps a concrete p-value.
func NewPValue(p float64) PValue {
	return PValue{Float64: p, Valid: true}
}

// MissingP is the placeholder for an untested pair.
func MissingP() PValue {
	return PValue{}
}

// String formats the p-value for reports; missing values render blank.
func (p PValue) String() string {
	if !p.Valid {
		return ""
	}
	return strconv.FormatFloat(p.Float64, 'g', 6, 64)
}

// Stars is the significance tier of a p-value, 0 (not significant) to 5.
type Stars int

// StarsFor maps a (possibly adjusted) p-value to its significance tier.
// Missing p-values map to zero stars.
func StarsFor(p PValue) Stars {
	if !p.Valid {
		return 0
	}
	switch {
	case p.Float64 < 1e-5:
		return 5
	case p.Float64 < 1e-4:
		return 4
	case p.Float64 < 1e-3:
		return 3
	case p.Float64 < 1e-2:
		return 2
	case p.Float64 < 0.05:
		return 1
	default:
		return 0
	}
}

// String renders the tier as asterisks ("" for zero).
func (s Stars) String() string {
	out := ""
	for i := Stars(0); i < s; i++ {
		out += "*"
	}
	return out
}

// SignificanceRecord is one pairwise comparison result for one gene. Sample1
// and Sample2 are in canonical (lexicographic) order so one unordered pair
// has exactly one representation.
type SignificanceRecord struct {
	Sample1        core.Condition
	Sample2        core.Condition
	Gene           core.GeneKey
	PValue         PValue
	AdjustedPValue PValue // set only when FDR correction was requested
	Stars          Stars
}

// Pair returns the canonical condition pair of the record.
func (r SignificanceRecord) Pair() (core.Condition, core.Condition) {
	return r.Sample1, r.Sample2
}

// CanonicalPair orders two conditions lexicographically.
func CanonicalPair(a, b core.Condition) (core.Condition, core.Condition) {
	if b < a {
		return b, a
	}
	return a, b
}

// SignificanceTable is the concatenation of all per-gene pairwise results of
// one analysis run.
type SignificanceTable struct {
	Records []SignificanceRecord
	// FDRApplied records whether the AdjustedPValue column is populated.
	FDRApplied bool
}

// Append adds a record.
func (t *SignificanceTable) Append(r SignificanceRecord) {
	t.Records = append(t.Records, r)
}

// Len returns the record count.
func (t SignificanceTable) Len() int { return len(t.Records) }

// ForGene returns the records of one gene.
func (t SignificanceTable) ForGene(gene core.GeneKey) []SignificanceRecord {
	var out []SignificanceRecord
	for _, r := range t.Records {
		if r.Gene == gene {
			out = append(out, r)
		}
	}
	return out
}
