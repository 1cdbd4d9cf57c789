package app

import (
	"context"
	"fmt"

	"mscourse/adapters/stats/engine"
	"mscourse/domain/core"
	"mscourse/domain/design"
	"mscourse/domain/diag"
	"mscourse/domain/table"
	"mscourse/internal"
)

// Variant selects what the long-form values mean.
type Variant string

const (
	// VariantFoldChange normalizes every value against the control baseline.
	VariantFoldChange Variant = "fold_change"
	// VariantIntensity keeps raw (log2) intensities without a baseline.
	VariantIntensity Variant = "intensity"
)

// AnalysisRequest carries everything one time-course run needs.
type AnalysisRequest struct {
	Table        *table.IntensityTable
	Genes        []core.GeneKey
	GeneListName string

	// Conditions are ordered name prefixes selecting the sample columns.
	Conditions       []core.Condition
	ControlCondition core.Condition

	Variant       Variant
	Logscale      bool
	MatchTimeNorm bool
	Delimiter     string

	// RunSignificance adds the per-gene ANOVA + Tukey HSD pass.
	RunSignificance bool
	ApplyFDR        bool
	Workers         int

	// AlignYAxis is carried through to the result for downstream plotting.
	AlignYAxis bool
}

// AnalysisResult is the complete outcome of one run.
type AnalysisResult struct {
	RunID        core.RunID
	StartedAt    core.Timestamp
	Variant      Variant
	Long         table.LongTable
	TimeAxis     design.TimeAxis
	Significance table.SignificanceTable
	Diagnostics  []diag.Entry
	AlignYAxis   bool
}

// TimeCourseService orchestrates normalization and significance testing for
// one gene list over one intensity matrix.
type TimeCourseService struct {
	normalizer   *engine.NormalizationEngine
	significance *engine.SignificanceEngine
	log          *internal.Logger
}

func NewTimeCourseService(normalizer *engine.NormalizationEngine, significance *engine.SignificanceEngine) *TimeCourseService {
	return &TimeCourseService{
		normalizer:   normalizer,
		significance: significance,
		log:          internal.DefaultLogger,
	}
}

// WithLogger replaces the service logger (tests use a silent one).
func (s *TimeCourseService) WithLogger(logger *internal.Logger) *TimeCourseService {
	s.log = logger
	return s
}

// Run executes the full pipeline. A nil log gets a console-mirroring default.
func (s *TimeCourseService) Run(ctx context.Context, req AnalysisRequest, dlog *diag.Log) (*AnalysisResult, error) {
	started := core.Now()
	if dlog == nil {
		dlog = diag.NewLog()
	}
	if req.Variant == "" {
		req.Variant = VariantFoldChange
	}
	if req.Delimiter == "" {
		req.Delimiter = design.DefaultDelimiter
	}

	normReq := engine.NormalizationRequest{
		Table:            req.Table,
		Genes:            req.Genes,
		GeneListName:     req.GeneListName,
		Conditions:       req.Conditions,
		ControlCondition: req.ControlCondition,
		Logscale:         req.Logscale,
		MatchTimeNorm:    req.MatchTimeNorm,
		Delimiter:        req.Delimiter,
	}

	// 1. Reshape the wide matrix into long form.
	var (
		long table.LongTable
		axis design.TimeAxis
		err  error
	)
	switch req.Variant {
	case VariantFoldChange:
		long, axis, err = s.normalizer.FoldChanges(normReq, dlog)
	case VariantIntensity:
		long, axis, err = s.normalizer.Intensities(normReq, dlog)
	default:
		return nil, fmt.Errorf("unknown analysis variant %q", req.Variant)
	}
	if err != nil {
		return nil, fmt.Errorf("normalizing gene list %q: %w", req.GeneListName, err)
	}
	s.log.Debug("gene list %q: %d long records across %d timepoints",
		req.GeneListName, long.Len(), len(axis.Points))

	result := &AnalysisResult{
		RunID:      core.RunID(core.NewID()),
		StartedAt:  started,
		Variant:    req.Variant,
		Long:       long,
		TimeAxis:   axis,
		AlignYAxis: req.AlignYAxis,
	}

	// 2. Optional per-gene significance pass over the long table.
	if req.RunSignificance {
		sig, err := s.significance.Run(ctx, long, engine.SignificanceOptions{
			ApplyFDR:           req.ApplyFDR,
			ReferenceCondition: req.ControlCondition,
			Workers:            req.Workers,
		}, dlog)
		if err != nil {
			return nil, fmt.Errorf("significance testing gene list %q: %w", req.GeneListName, err)
		}
		result.Significance = sig
	}

	result.Diagnostics = dlog.Entries()
	s.log.Info("run %s: variant=%s records=%d tests=%d diagnostics=%d elapsed=%s",
		result.RunID, result.Variant, result.Long.Len(), result.Significance.Len(), len(result.Diagnostics), started.Since())
	return result, nil
}
