package ingest

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mscourse/domain/core"
	"mscourse/domain/table"
	internalerrors "mscourse/internal/errors"

	"github.com/xuri/excelize/v2"
)

// candidateSeparators are tried in order when sniffing delimited files.
var candidateSeparators = []rune{'\t', ';', ','}

// Reader loads wide intensity matrices from disk. The expected shape is one
// header row of sample names, a first column of gene names, and numeric cells.
// Empty or non-numeric cells become missing values.
type Reader struct{}

// NewReader creates an intensity file reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads the intensity table at path, dispatching on the file extension.
// Excel workbooks read their first sheet; everything else is treated as a
// delimited text file with a sniffed separator.
func (r *Reader) Read(path string) (*table.IntensityTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return r.readExcel(path)
	default:
		return r.readDelimited(path)
	}
}

func (r *Reader) readDelimited(path string) (*table.IntensityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, internalerrors.IOError("opening intensity file", err)
	}
	defer f.Close()

	header, err := readLine(f)
	if err != nil {
		return nil, internalerrors.IOError("reading header row", err)
	}
	sep := sniffSeparator(header)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, internalerrors.IOError("rewinding intensity file", err)
	}
	cr := csv.NewReader(f)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, internalerrors.IOError("parsing intensity file", err)
	}
	return buildTable(rows)
}

func (r *Reader) readExcel(path string) (*table.IntensityTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, internalerrors.IOError("opening workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, internalerrors.InputEmpty("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, internalerrors.IOError("reading sheet rows", err)
	}
	return buildTable(rows)
}

// buildTable assembles the wide matrix from raw string rows. Ragged rows are
// padded with missing values so every gene spans all sample columns.
func buildTable(rows [][]string) (*table.IntensityTable, error) {
	if len(rows) < 2 {
		return nil, internalerrors.InputEmpty("intensity file needs a header row and at least one gene row")
	}
	header := rows[0]
	if len(header) < 2 {
		return nil, internalerrors.SchemaViolation("header needs a gene column and at least one sample column")
	}
	columns := make([]string, 0, len(header)-1)
	for _, name := range header[1:] {
		columns = append(columns, strings.TrimSpace(name))
	}

	t := table.NewIntensityTable(columns)
	for _, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		gene := core.GeneKey(strings.TrimSpace(row[0]))
		values := make([]float64, len(columns))
		for i := range columns {
			if i+1 < len(row) {
				values[i] = parseCell(row[i+1])
			} else {
				values[i] = math.NaN()
			}
		}
		if err := t.AddRow(gene, values); err != nil {
			return nil, internalerrors.Wrapf(err, "adding row %s", gene)
		}
	}
	return t, nil
}

// parseCell converts one cell to a measurement; anything unparsable is
// missing rather than fatal.
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "na") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// sniffSeparator picks the first candidate that splits the header into more
// than one field.
func sniffSeparator(header string) rune {
	for _, sep := range candidateSeparators {
		if strings.Count(header, string(sep)) > 0 {
			return sep
		}
	}
	return candidateSeparators[len(candidateSeparators)-1]
}

func readLine(f *os.File) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			b.WriteByte(buf[0])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSuffix(b.String(), "\r"), nil
}
