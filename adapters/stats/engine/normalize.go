package engine

import (
	"fmt"
	"math"

	"mscourse/domain/core"
	"mscourse/domain/design"
	"mscourse/domain/diag"
	"mscourse/domain/table"

	"github.com/montanaflynn/stats"
)

// NormalizationRequest carries the inputs of one reshaping run.
type NormalizationRequest struct {
	Table        *table.IntensityTable
	Genes        []core.GeneKey
	GeneListName string // labeling only
	// Conditions are ordered prefixes; a sample column belongs to the first
	// prefix its condition label starts with.
	Conditions       []core.Condition
	ControlCondition core.Condition
	// Logscale marks the input as already log2-transformed. When false,
	// values are log2-transformed before any baseline arithmetic.
	Logscale bool
	// MatchTimeNorm switches the baseline from "control at the earliest
	// timepoint" to "control at the same timepoint".
	MatchTimeNorm bool
	Delimiter     string
}

// NormalizationEngine reshapes the wide intensity matrix into the long-form
// (time, condition, gene, value) table.
type NormalizationEngine struct{}

// NewNormalizationEngine creates a normalization engine.
func NewNormalizationEngine() *NormalizationEngine {
	return &NormalizationEngine{}
}

// layout is the resolved sample selection of one run: which table columns
// serve each (condition, timepoint) cell.
type layout struct {
	axis  design.TimeAxis
	conds []core.Condition
	genes []core.GeneKey
	// cols[condition][timeToken] = table column indices
	cols map[core.Condition]map[string][]int
}

// FoldChanges produces the long-form table of log2 fold changes relative to
// the control condition.
//
// The per-gene baseline is the NA-ignoring mean of the control replicates at
// the earliest timepoint, or at the matching timepoint when MatchTimeNorm is
// set. A condition with no columns at the earliest timepoint is zero-filled
// for every gene (assumed identical to control at baseline); at any other
// timepoint the gap is only reported. Records with missing values are dropped
// at the end.
func (e *NormalizationEngine) FoldChanges(req NormalizationRequest, dlog *diag.Log) (table.LongTable, design.TimeAxis, error) {
	if req.ControlCondition == "" {
		return table.LongTable{}, design.TimeAxis{}, fmt.Errorf("fold change normalization requires a control condition")
	}
	lay, err := e.resolve(req, true, dlog)
	if err != nil || lay == nil {
		return table.LongTable{}, design.TimeAxis{}, err
	}

	earliest := lay.axis.Earliest().Token
	var baseline map[core.GeneKey]float64
	if !req.MatchTimeNorm {
		baseline = e.controlBaseline(req, lay, earliest)
	}

	var long table.LongTable
	for _, point := range lay.axis.Points {
		base := baseline
		if req.MatchTimeNorm {
			base = e.controlBaseline(req, lay, point.Token)
		}
		for _, cond := range lay.conds {
			colIdx := lay.cols[cond][point.Token]
			if len(colIdx) == 0 {
				if point.Token == earliest {
					// At baseline a missing condition is assumed identical
					// to control: synthesize zero fold change per gene.
					for _, gene := range lay.genes {
						long.Append(table.LongRecord{Time: point.Value, Condition: cond, Gene: gene, Value: 0})
					}
					dlog.Addf(diag.KindMissingCondition,
						"condition %s has no samples at baseline timepoint %s; zero-filled %d genes",
						cond, point.Token, len(lay.genes))
				} else {
					dlog.Addf(diag.KindMissingCondition,
						"condition %s has no samples at timepoint %s; skipped", cond, point.Token)
				}
				continue
			}
			for _, gene := range lay.genes {
				for _, ci := range colIdx {
					v := e.value(req, gene, ci)
					var fc float64
					switch {
					case math.IsNaN(v):
						fc = math.NaN()
					case cond == req.ControlCondition && point.Token == earliest:
						// Self-normalization identity: the control at its own
						// baseline is exactly zero.
						fc = 0
					default:
						fc = v - base[gene]
					}
					long.Append(table.LongRecord{Time: point.Value, Condition: cond, Gene: gene, Value: fc})
				}
			}
		}
	}
	return long.DropNA(), lay.axis, nil
}

// Intensities produces the long-form table of raw (optionally
// log2-transformed) intensities. No baseline is involved, so a missing
// condition/timepoint pair only yields a diagnostic, never synthesized rows.
func (e *NormalizationEngine) Intensities(req NormalizationRequest, dlog *diag.Log) (table.LongTable, design.TimeAxis, error) {
	lay, err := e.resolve(req, false, dlog)
	if err != nil || lay == nil {
		return table.LongTable{}, design.TimeAxis{}, err
	}

	var long table.LongTable
	for _, point := range lay.axis.Points {
		for _, cond := range lay.conds {
			colIdx := lay.cols[cond][point.Token]
			if len(colIdx) == 0 {
				dlog.Addf(diag.KindMissingCondition,
					"condition %s has no samples at timepoint %s; skipped", cond, point.Token)
				continue
			}
			for _, gene := range lay.genes {
				for _, ci := range colIdx {
					long.Append(table.LongRecord{Time: point.Value, Condition: cond, Gene: gene, Value: e.value(req, gene, ci)})
				}
			}
		}
	}
	return long.DropNA(), lay.axis, nil
}

// resolve parses the sample design, selects columns and genes, and extracts
// the time axis. A nil layout with nil error means the run is empty but
// recoverable (already reported).
func (e *NormalizationEngine) resolve(req NormalizationRequest, includeControl bool, dlog *diag.Log) (*layout, error) {
	if req.Table == nil {
		return nil, core.ErrEmptyTable
	}
	if err := req.Table.Validate(); err != nil {
		return nil, err
	}

	cols, err := design.ParseColumns(req.Table.Columns, req.Delimiter)
	if err != nil {
		return nil, err
	}

	conds := make([]core.Condition, 0, len(req.Conditions)+1)
	conds = append(conds, req.Conditions...)
	if includeControl && req.ControlCondition != "" && !containsCondition(conds, req.ControlCondition) {
		conds = append(conds, req.ControlCondition)
	}
	if len(conds) == 0 {
		dlog.Addf(diag.KindEmptyInput, "no conditions requested")
		return nil, nil
	}

	selected := design.Select(cols, conds)
	if len(selected) == 0 {
		dlog.Addf(diag.KindEmptyInput, "no sample columns match the requested conditions")
		return nil, nil
	}

	axis, err := design.ExtractTimeAxis(design.TimeTokens(selected))
	if err != nil {
		return nil, err
	}

	genes := make([]core.GeneKey, 0, len(req.Genes))
	for _, g := range req.Genes {
		// Genes absent from the table are silently dropped.
		if req.Table.HasGene(g) {
			genes = append(genes, g)
		}
	}
	if len(genes) == 0 {
		dlog.Addf(diag.KindEmptyInput, "gene list %q matched no table rows", req.GeneListName)
		return nil, nil
	}

	byCell := make(map[core.Condition]map[string][]int, len(conds))
	for _, cond := range conds {
		byCell[cond] = make(map[string][]int)
	}
	for _, sc := range selected {
		ci, ok := req.Table.ColumnIndex(string(sc.Name))
		if !ok {
			continue
		}
		// A column belongs to the first requested prefix it matches.
		for _, cond := range conds {
			if sc.MatchesCondition(cond) {
				byCell[cond][sc.TimeToken] = append(byCell[cond][sc.TimeToken], ci)
				break
			}
		}
	}

	return &layout{axis: axis, conds: conds, genes: genes, cols: byCell}, nil
}

// controlBaseline computes the per-gene NA-ignoring mean of the control
// replicates at one timepoint. Genes without any control measurement there
// get a NaN baseline, which drops their fold changes downstream.
func (e *NormalizationEngine) controlBaseline(req NormalizationRequest, lay *layout, timeToken string) map[core.GeneKey]float64 {
	colIdx := lay.cols[req.ControlCondition][timeToken]
	base := make(map[core.GeneKey]float64, len(lay.genes))
	for _, gene := range lay.genes {
		var vals []float64
		for _, ci := range colIdx {
			v := e.value(req, gene, ci)
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			base[gene] = math.NaN()
			continue
		}
		m, err := stats.Mean(vals)
		if err != nil {
			m = math.NaN()
		}
		base[gene] = m
	}
	return base
}

// value reads one measurement, applying the log2 transform when the input is
// not already on log scale. Non-positive values cannot be log-transformed and
// become missing.
func (e *NormalizationEngine) value(req NormalizationRequest, gene core.GeneKey, col int) float64 {
	v := req.Table.Value(gene, col)
	if req.Logscale {
		return v
	}
	if math.IsNaN(v) || v <= 0 {
		return math.NaN()
	}
	return math.Log2(v)
}

func containsCondition(conds []core.Condition, c core.Condition) bool {
	for _, x := range conds {
		if x == c {
			return true
		}
	}
	return false
}
