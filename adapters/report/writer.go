package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mscourse/domain/table"
	internalerrors "mscourse/internal/errors"
)

// Naming carries the labels that identify one analysis run in output file
// names, mirroring the labeled directory layout of the upstream pipeline.
type Naming struct {
	DFLabel         string // which protein dataframe was analyzed
	NormalizerLabel string // which normalizer produced it, may be empty
	GeneListName    string
	Variant         string // "fold_change" or "intensity"
}

// FileName builds "<df>[_<normalizer>]_<variant>_<genelist>_<kind>.csv".
func (n Naming) FileName(kind string) string {
	parts := []string{n.DFLabel}
	if n.NormalizerLabel != "" {
		parts = append(parts, n.NormalizerLabel)
	}
	parts = append(parts, n.Variant, n.GeneListName, kind)
	return strings.Join(parts, "_") + ".csv"
}

// Writer renders analysis results as CSV files.
type Writer struct {
	outDir string
}

// NewWriter creates a report writer rooted at outDir.
func NewWriter(outDir string) *Writer {
	return &Writer{outDir: outDir}
}

// WriteLong writes the long-form table under the run's name and returns the
// full output path.
func (w *Writer) WriteLong(naming Naming, long table.LongTable) (string, error) {
	path := filepath.Join(w.outDir, naming.FileName("timecourse"))
	f, err := createFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteLongCSV(f, long); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSignificance writes the pairwise significance table and returns the
// full output path.
func (w *Writer) WriteSignificance(naming Naming, sig table.SignificanceTable) (string, error) {
	path := filepath.Join(w.outDir, naming.FileName("significance"))
	f, err := createFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteSignificanceCSV(f, sig); err != nil {
		return "", err
	}
	return path, nil
}

// WriteLongCSV streams the long-form table as CSV with one row per replicate
// measurement.
func WriteLongCSV(out io.Writer, long table.LongTable) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"time", "condition", "gene", "value"}); err != nil {
		return internalerrors.IOError("writing header", err)
	}
	for _, r := range long.Records {
		row := []string{
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			string(r.Condition),
			string(r.Gene),
			strconv.FormatFloat(r.Value, 'g', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return internalerrors.IOError("writing record", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSignificanceCSV streams the pairwise table as CSV. Missing p-values of
// placeholder rows render as blank cells. The adjusted column appears only
// when FDR correction ran.
func WriteSignificanceCSV(out io.Writer, sig table.SignificanceTable) error {
	cw := csv.NewWriter(out)
	header := []string{"sample1", "sample2", "gene", "pvalue"}
	if sig.FDRApplied {
		header = append(header, "pvalue_adjusted")
	}
	header = append(header, "significance")
	if err := cw.Write(header); err != nil {
		return internalerrors.IOError("writing header", err)
	}
	for _, r := range sig.Records {
		row := []string{string(r.Sample1), string(r.Sample2), string(r.Gene), r.PValue.String()}
		if sig.FDRApplied {
			row = append(row, r.AdjustedPValue.String())
		}
		row = append(row, r.Stars.String())
		if err := cw.Write(row); err != nil {
			return internalerrors.IOError("writing record", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, internalerrors.IOError(fmt.Sprintf("creating output directory for %s", path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, internalerrors.IOError(fmt.Sprintf("creating %s", path), err)
	}
	return f, nil
}
