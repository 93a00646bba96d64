// Package data defines the read-only dataset accessor used by tree growing and
// prediction, and the per-sample Observations shared by all trees of a forest.
package data

import (
	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Data is random-access, read-only tabular data.
type Data interface {
	Get(row, col int) float64
	NumRows() int
	NumCols() int
}

// DenseData is a Data backed by a gonum dense matrix.
type DenseData struct {
	m *mat.Dense
}

// NewDenseData copies m into a DenseData.
func NewDenseData(m mat.Matrix) (*DenseData, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("NewDenseData", "empty data", errors.ErrEmptyData)
	}
	return &DenseData{m: mat.DenseCopyOf(m)}, nil
}

// NewDenseDataFromRows builds a DenseData from row-major values.
func NewDenseDataFromRows(rows [][]float64) (*DenseData, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.NewModelError("NewDenseDataFromRows", "empty data", errors.ErrEmptyData)
	}
	cols := len(rows[0])
	m := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.NewDimensionError("NewDenseDataFromRows", cols, len(row), 1)
		}
		m.SetRow(i, row)
	}
	return &DenseData{m: m}, nil
}

func (d *DenseData) Get(row, col int) float64 { return d.m.At(row, col) }

func (d *DenseData) NumRows() int {
	if d.m == nil {
		return 0
	}
	r, _ := d.m.Dims()
	return r
}

func (d *DenseData) NumCols() int {
	if d.m == nil {
		return 0
	}
	_, c := d.m.Dims()
	return c
}

// Matrix exposes the underlying matrix read-only.
func (d *DenseData) Matrix() mat.Matrix { return d.m }
