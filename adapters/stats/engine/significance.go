package engine

import (
	"context"
	"math"
	"sort"

	"mscourse/domain/core"
	"mscourse/domain/diag"
	"mscourse/domain/table"

	"golang.org/x/sync/errgroup"
)

// minReplicates is the smallest (time, condition) group size admitted to the
// parametric test.
const minReplicates = 2

// SignificanceOptions configures one significance run.
type SignificanceOptions struct {
	// ApplyFDR enables Benjamini-Hochberg adjustment across the whole
	// concatenated p-value column (all genes and pairs jointly).
	ApplyFDR bool
	// ReferenceCondition anchors the placeholder rows of untestable genes.
	// Defaults to the lexicographically first condition.
	ReferenceCondition core.Condition
	// Workers > 1 runs the per-gene loop in parallel. Output order is
	// unchanged: results are concatenated in gene input order.
	Workers int
}

// SignificanceEngine runs per-gene two-factor ANOVA with Tukey HSD post-hoc
// testing over a long-form table.
type SignificanceEngine struct{}

// NewSignificanceEngine creates a significance engine.
func NewSignificanceEngine() *SignificanceEngine {
	return &SignificanceEngine{}
}

// geneOutcome is the result of testing one gene.
type geneOutcome struct {
	records []table.SignificanceRecord
	diags   []diag.Entry
}

// Run tests every gene of the long-form table and returns the concatenated
// pairwise significance table.
//
// Fewer than two conditions is a valid non-error outcome: the result is empty
// and a diagnostic is emitted. Per-gene statistical failures degrade that
// gene to placeholder rows with missing p-values so the pairwise matrix stays
// rectangular across all genes.
func (e *SignificanceEngine) Run(ctx context.Context, long table.LongTable, opts SignificanceOptions, dlog *diag.Log) (table.SignificanceTable, error) {
	conds := long.Conditions()
	if len(conds) < 2 {
		dlog.Addf(diag.KindSingleCondition,
			"significance testing needs at least two conditions, found %d; nothing to test", len(conds))
		return table.SignificanceTable{FDRApplied: opts.ApplyFDR}, nil
	}

	ref := opts.ReferenceCondition
	if ref == "" || !condPresent(conds, ref) {
		ref = conds[0]
	}
	allPairs := conditionPairs(conds)
	genes := long.Genes()

	outcomes := make([]geneOutcome, len(genes))
	if opts.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i, gene := range genes {
			i, gene := i, gene
			g.Go(func() error {
				outcomes[i] = e.testGene(long.ForGene(gene), gene, ref, allPairs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return table.SignificanceTable{}, err
		}
	} else {
		for i, gene := range genes {
			outcomes[i] = e.testGene(long.ForGene(gene), gene, ref, allPairs)
		}
	}

	result := table.SignificanceTable{FDRApplied: opts.ApplyFDR}
	for _, o := range outcomes {
		for _, d := range o.diags {
			dlog.Addf(d.Kind, "%s", d.Message)
		}
		result.Records = append(result.Records, o.records...)
	}

	if opts.ApplyFDR {
		adjustBenjaminiHochberg(result.Records)
	}
	for i := range result.Records {
		p := result.Records[i].PValue
		if opts.ApplyFDR {
			p = result.Records[i].AdjustedPValue
		}
		result.Records[i].Stars = table.StarsFor(p)
	}
	return result, nil
}

// testGene runs the per-gene procedure: replicate filtering, the additive
// ANOVA, Tukey HSD on the condition factor, and backfill to the full pair set.
func (e *SignificanceEngine) testGene(records []table.LongRecord, gene core.GeneKey, ref core.Condition, allPairs [][2]core.Condition) geneOutcome {
	filtered := filterReplicated(records)

	out := geneOutcome{}
	times := distinctTimes(filtered)
	conds := distinctConds(filtered)

	havePair := make(map[[2]core.Condition]bool, len(allPairs))
	if len(times) < 2 || len(conds) < 2 {
		out.diags = append(out.diags, diag.Entry{
			Kind:    diag.KindSkippedGene,
			Message: string(gene) + ": not enough replicated groups for testing; placeholder rows emitted",
		})
		for _, pair := range pairsAgainst(ref, allPairs) {
			out.records = append(out.records, placeholderRecord(pair, gene))
			havePair[pair] = true
		}
	} else {
		fit, err := fitTwoWayANOVA(filtered)
		if err != nil || math.IsNaN(fit.pTime) || math.IsNaN(fit.pCondition) {
			out.diags = append(out.diags, diag.Entry{
				Kind:    diag.KindSkippedGene,
				Message: string(gene) + ": analysis of variance failed; placeholder rows emitted",
			})
			for _, pair := range pairsAgainst(ref, allPairs) {
				out.records = append(out.records, placeholderRecord(pair, gene))
				havePair[pair] = true
			}
		} else {
			for _, cmp := range tukeyHSD(fit) {
				pair := [2]core.Condition{cmp.Sample1, cmp.Sample2}
				out.records = append(out.records, table.SignificanceRecord{
					Sample1: cmp.Sample1,
					Sample2: cmp.Sample2,
					Gene:    gene,
					PValue:  table.NewPValue(cmp.PValue),
				})
				havePair[pair] = true
			}
		}
	}

	// Backfill so every gene carries the full combinatorial pair set.
	for _, pair := range allPairs {
		if !havePair[pair] {
			out.records = append(out.records, placeholderRecord(pair, gene))
		}
	}
	return out
}

// filterReplicated drops (time, condition) groups with fewer than
// minReplicates observations.
func filterReplicated(records []table.LongRecord) []table.LongRecord {
	type cell struct {
		time float64
		cond core.Condition
	}
	counts := make(map[cell]int)
	for _, r := range records {
		counts[cell{r.Time, r.Condition}]++
	}
	var out []table.LongRecord
	for _, r := range records {
		if counts[cell{r.Time, r.Condition}] >= minReplicates {
			out = append(out, r)
		}
	}
	return out
}

func placeholderRecord(pair [2]core.Condition, gene core.GeneKey) table.SignificanceRecord {
	return table.SignificanceRecord{
		Sample1: pair[0],
		Sample2: pair[1],
		Gene:    gene,
		PValue:  table.MissingP(),
	}
}

// conditionPairs returns every unordered condition pair in canonical order.
func conditionPairs(conds []core.Condition) [][2]core.Condition {
	var out [][2]core.Condition
	for i := 0; i < len(conds); i++ {
		for j := i + 1; j < len(conds); j++ {
			a, b := table.CanonicalPair(conds[i], conds[j])
			out = append(out, [2]core.Condition{a, b})
		}
	}
	return out
}

// pairsAgainst returns the subset of allPairs touching the reference
// condition.
func pairsAgainst(ref core.Condition, allPairs [][2]core.Condition) [][2]core.Condition {
	var out [][2]core.Condition
	for _, p := range allPairs {
		if p[0] == ref || p[1] == ref {
			out = append(out, p)
		}
	}
	return out
}

// adjustBenjaminiHochberg applies the BH step-up procedure in place across
// every valid p-value of the table. Adjusted values are monotone in the raw
// ranking and never smaller than the raw p-value.
func adjustBenjaminiHochberg(records []table.SignificanceRecord) {
	var idx []int
	for i, r := range records {
		if r.PValue.Valid {
			idx = append(idx, i)
		}
	}
	m := len(idx)
	if m == 0 {
		return
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return records[idx[a]].PValue.Float64 < records[idx[b]].PValue.Float64
	})

	adjusted := make([]float64, m)
	running := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		v := records[idx[rank]].PValue.Float64 * float64(m) / float64(rank+1)
		if v < running {
			running = v
		}
		adjusted[rank] = math.Min(running, 1)
	}
	for rank, i := range idx {
		records[i].AdjustedPValue = table.NewPValue(adjusted[rank])
	}
}

func condPresent(conds []core.Condition, c core.Condition) bool {
	for _, x := range conds {
		if x == c {
			return true
		}
	}
	return false
}
