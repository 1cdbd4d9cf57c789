package main

import (
	"fmt"
	"os"
	"strings"

	"mscourse/adapters/ingest"
	"mscourse/adapters/report"
	"mscourse/adapters/stats/engine"
	"mscourse/app"
	"mscourse/domain/core"
	"mscourse/domain/design"
	"mscourse/domain/diag"
	"mscourse/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Optional .env for local runs; environment wins.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "mscourse-cli",
		Short: "Time-course analysis of proteomics intensity matrices",
	}

	rootCmd.AddCommand(
		newTimecourseCmd(),
		newIntensityCmd(),
		newDesignCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFlags struct {
	input         string
	outDir        string
	genes         []string
	geneList      string
	conditions    []string
	control       string
	delimiter     string
	logscale      bool
	matchTimeNorm bool
	significance  bool
	fdr           bool
	workers       int
	dfLabel       string
	normalizer    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "Intensity matrix file (csv/tsv/xlsx); defaults to INTENSITY_FILE")
	cmd.Flags().StringVar(&f.outDir, "out", "", "Output directory; defaults to OUTPUT_DIR")
	cmd.Flags().StringSliceVar(&f.genes, "genes", nil, "Gene names to analyze")
	cmd.Flags().StringVar(&f.geneList, "gene-list", "custom", "Label for the gene list")
	cmd.Flags().StringSliceVar(&f.conditions, "conditions", nil, "Ordered condition name prefixes")
	cmd.Flags().StringVar(&f.control, "control", "", "Control condition for fold-change baselines")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "Sample name delimiter (default from env, then \"_\")")
	cmd.Flags().BoolVar(&f.logscale, "logscale", false, "Input values are already log2 transformed")
	cmd.Flags().BoolVar(&f.matchTimeNorm, "match-time-norm", false, "Normalize against control at the matching timepoint")
	cmd.Flags().BoolVar(&f.significance, "significance", true, "Run per-gene ANOVA + Tukey HSD")
	cmd.Flags().BoolVar(&f.fdr, "fdr", false, "Apply Benjamini-Hochberg correction")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel gene workers (0 = env default)")
	cmd.Flags().StringVar(&f.dfLabel, "df-label", "proteins", "Dataframe label for output names")
	cmd.Flags().StringVar(&f.normalizer, "normalizer", "", "Normalizer label for output names")
}

func newTimecourseCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "timecourse",
		Short: "Log2 fold changes over time relative to a control condition",
		Long: `Reshape the wide intensity matrix into a long-form fold-change table and
test each gene with a two-factor analysis of variance plus Tukey HSD.

Example: mscourse-cli timecourse --input proteins.tsv --genes GAPDH,ACTB \
  --conditions treatmentA,treatmentB --control control --fdr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.control == "" {
				return fmt.Errorf("--control is required for fold-change analysis")
			}
			return runAnalysis(cmd, flags, app.VariantFoldChange)
		},
	}
	flags.register(cmd)
	return cmd
}

func newIntensityCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "intensity",
		Short: "Raw (log2) intensities over time, no baseline normalization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, flags, app.VariantIntensity)
		},
	}
	flags.register(cmd)
	return cmd
}

func newDesignCmd() *cobra.Command {
	var delimiter string
	cmd := &cobra.Command{
		Use:   "design [input-file]",
		Short: "Inspect the sample design parsed from the column names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ingest.NewReader().Read(args[0])
			if err != nil {
				return err
			}
			if delimiter == "" {
				delimiter = design.DefaultDelimiter
			}
			cols, err := design.ParseColumns(t.Columns, delimiter)
			if err != nil {
				return err
			}
			axis, err := design.ExtractTimeAxis(design.TimeTokens(cols))
			if err != nil {
				return err
			}

			fmt.Printf("samples: %d  genes: %d  time unit: %s\n", len(cols), t.RowCount(), axis.Unit)
			for _, p := range axis.Points {
				fmt.Printf("  %s -> %g\n", p.Token, p.Value)
			}
			fmt.Println("conditions:")
			order, counts := conditionCounts(cols)
			for _, c := range order {
				fmt.Printf("  %s (%d samples)\n", c, counts[c])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "Sample name delimiter")
	return cmd
}

// conditionCounts tallies samples per condition label, first-seen order.
func conditionCounts(cols []design.SampleColumn) ([]string, map[string]int) {
	counts := make(map[string]int, len(cols))
	var order []string
	for _, c := range cols {
		if _, ok := counts[c.Condition]; !ok {
			order = append(order, c.Condition)
		}
		counts[c.Condition]++
	}
	return order, counts
}

func runAnalysis(cmd *cobra.Command, flags *runFlags, variant app.Variant) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	t, err := ingest.NewReader().Read(cfg.Paths.IntensityFile)
	if err != nil {
		return err
	}

	genes := make([]core.GeneKey, 0, len(flags.genes))
	for _, g := range flags.genes {
		gene, err := core.ParseGeneKey(strings.TrimSpace(g))
		if err != nil {
			continue
		}
		genes = append(genes, gene)
	}
	if len(genes) == 0 {
		// No explicit list means the full matrix.
		genes = append(genes, t.Genes...)
	}
	conditions := make([]core.Condition, 0, len(flags.conditions))
	for _, c := range flags.conditions {
		cond, err := core.ParseCondition(strings.TrimSpace(c))
		if err != nil {
			continue
		}
		conditions = append(conditions, cond)
	}

	service := app.NewTimeCourseService(engine.NewNormalizationEngine(), engine.NewSignificanceEngine())
	dlog := diag.NewLog()
	result, err := service.Run(cmd.Context(), app.AnalysisRequest{
		Table:            t,
		Genes:            genes,
		GeneListName:     flags.geneList,
		Conditions:       conditions,
		ControlCondition: core.Condition(flags.control),
		Variant:          variant,
		Logscale:         cfg.Analysis.Logscale,
		MatchTimeNorm:    cfg.Analysis.MatchTimeNorm,
		Delimiter:        cfg.Analysis.Delimiter,
		RunSignificance:  flags.significance,
		ApplyFDR:         cfg.Analysis.ApplyFDR,
		Workers:          cfg.Analysis.Workers,
	}, dlog)
	if err != nil {
		return err
	}

	naming := report.Naming{
		DFLabel:         flags.dfLabel,
		NormalizerLabel: flags.normalizer,
		GeneListName:    flags.geneList,
		Variant:         string(variant),
	}
	writer := report.NewWriter(cfg.Paths.OutputDir)
	longPath, err := writer.WriteLong(naming, result.Long)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %d long records -> %s\n", result.RunID, result.Long.Len(), longPath)

	if flags.significance {
		sigPath, err := writer.WriteSignificance(naming, result.Significance)
		if err != nil {
			return err
		}
		fmt.Printf("run %s: %d pairwise tests -> %s\n", result.RunID, result.Significance.Len(), sigPath)
	}
	if n := dlog.Count(); n > 0 {
		fmt.Printf("%d diagnostics (see log above)\n", n)
	}
	return nil
}

// loadConfig merges environment configuration with command-line overrides.
func loadConfig(flags *runFlags) (*config.Config, error) {
	if flags.input != "" {
		os.Setenv("INTENSITY_FILE", flags.input)
	}
	if flags.outDir != "" {
		os.Setenv("OUTPUT_DIR", flags.outDir)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.delimiter != "" {
		cfg.Analysis.Delimiter = flags.delimiter
	}
	if flags.logscale {
		cfg.Analysis.Logscale = true
	}
	if flags.matchTimeNorm {
		cfg.Analysis.MatchTimeNorm = true
	}
	if flags.fdr {
		cfg.Analysis.ApplyFDR = true
	}
	if flags.workers > 0 {
		cfg.Analysis.Workers = flags.workers
	}
	return cfg, nil
}
