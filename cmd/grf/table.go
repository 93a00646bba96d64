package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// table is a numeric CSV file with a header row.
type table struct {
	header []string
	values *mat.Dense
}

// readTable reads path, or stdin when path is "-".
func readTable(path string, stdin io.Reader) (*table, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open data file")
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read CSV header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var data []float64
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read CSV row %d", rows+1)
		}
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %q", rows+1, header[j])
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, errors.NewModelError("readTable", "no data rows", errors.ErrEmptyData)
	}
	return &table{header: header, values: mat.NewDense(rows, len(header), data)}, nil
}

func (t *table) column(name string) (int, error) {
	for j, h := range t.header {
		if h == name {
			return j, nil
		}
	}
	return -1, errors.NewValueError("table", "missing column "+strconv.Quote(name))
}

// columns returns the named columns as a new matrix.
func (t *table) columns(names []string) (*mat.Dense, error) {
	rows, _ := t.values.Dims()
	out := mat.NewDense(rows, len(names), nil)
	for k, name := range names {
		j, err := t.column(name)
		if err != nil {
			return nil, err
		}
		out.SetCol(k, mat.Col(nil, j, t.values))
	}
	return out, nil
}

// without returns the header minus the excluded names.
func (t *table) without(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if e != "" {
			skip[e] = true
		}
	}
	var names []string
	for _, h := range t.header {
		if !skip[h] {
			names = append(names, h)
		}
	}
	return names
}

// writeTable writes header and the rows of m as CSV.
func writeTable(w io.Writer, header []string, m mat.Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	rows, cols := m.Dims()
	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write CSV row %d", i+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush CSV")
}
