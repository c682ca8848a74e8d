// Package dataset assembles the raw phone dataset and derives its
// projections: basic info, commonly populated features, the ML feature set
// and constant column checks.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/findyourpaths/phonespecs/output"
	"github.com/findyourpaths/phonespecs/utils"
	"github.com/samber/lo"
)

// ErrMissingInput marks a processing step whose input file does not exist.
// Errors wrapping it also wrap fs.ErrNotExist.
var ErrMissingInput = errors.New("missing input dataset")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header plus rows. Every row holds every column, in header
// order, with missing cells empty.
type Table struct {
	Columns []string
	Rows    []output.Record
}

// NewTable aligns ragged records under the union of their keys.
func NewTable(recs output.Records) *Table {
	return NewTableWithColumns(recs.Columns(), recs)
}

func NewTableWithColumns(columns []string, recs output.Records) *Table {
	t := &Table{Columns: columns, Rows: make([]output.Record, 0, len(recs))}
	for _, rec := range recs {
		t.Rows = append(t.Rows, rec.Project(columns))
	}
	return t
}

func (t *Table) Has(column string) bool {
	return lo.Contains(t.Columns, column)
}

// Project keeps columns, in that order. Callers must only name columns the
// table has.
func (t *Table) Project(columns []string) *Table {
	return NewTableWithColumns(columns, t.Rows)
}

// Values returns the column's cells, empty ones included.
func (t *Table) Values(column string) []string {
	return lo.Map(t.Rows, func(r output.Record, _ int) string { return r.Get(column) })
}

// ReadCSV reads a header-first CSV file. A leading UTF-8 BOM is dropped and
// short rows are padded with empty cells.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
		}
		return nil, fmt.Errorf("error opening dataset %q: %w", path, err)
	}
	defer f.Close()

	t, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset %q: %w", path, err)
	}
	return t, nil
}

// ReadHeader returns only the column names of a CSV file.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
		}
		return nil, fmt.Errorf("error opening dataset %q: %w", path, err)
	}
	defer f.Close()

	header, err := newCSVReader(f).Read()
	if err == io.EOF {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header of %q: %w", path, err)
	}
	return lo.Uniq(header), nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	return cr
}

func readCSV(r io.Reader) (*Table, error) {
	cr := newCSVReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return &Table{Columns: []string{}, Rows: []output.Record{}}, nil
	}
	if err != nil {
		return nil, err
	}

	// Duplicate header names keep their first column.
	t := &Table{Columns: lo.Uniq(header), Rows: []output.Record{}}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := output.Record{}
		for i, col := range header {
			if _, ok := rec.Lookup(col); ok {
				continue
			}
			v := ""
			if i < len(fields) {
				v = fields[i]
			}
			rec.Set(col, v)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

type WriteOpts struct {
	// BOM prefixes the file with a UTF-8 byte order mark so spreadsheet
	// tools detect the encoding.
	BOM bool
}

// WriteCSV writes t to path, creating parent directories. The file is only
// touched once the whole table has been encoded.
func WriteCSV(path string, t *Table, opts WriteOpts) error {
	bs, err := EncodeCSV(t, opts)
	if err != nil {
		return fmt.Errorf("error encoding dataset %q: %w", path, err)
	}
	if err := utils.WriteBytesFile(path, bs); err != nil {
		return fmt.Errorf("error writing dataset %q: %w", path, err)
	}
	return nil
}

func EncodeCSV(t *Table, opts WriteOpts) ([]byte, error) {
	buf := &bytes.Buffer{}
	if opts.BOM {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		if err := w.Write(lo.Map(t.Columns, func(c string, _ int) string { return row.Get(c) })); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Coverage is the percentage of rows with a non-empty value in column. An
// empty table has coverage 0.
func Coverage(t *Table, column string) float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	filled := lo.CountBy(t.Rows, func(r output.Record) bool { return r.Get(column) != "" })
	return float64(filled*100) / float64(len(t.Rows))
}
