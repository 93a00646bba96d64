package data

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ObservationType indexes the per-sample vectors held by Observations.
type ObservationType int

const (
	Outcome ObservationType = iota
	Treatment
	Instrument
)

func (t ObservationType) String() string {
	switch t {
	case Outcome:
		return "outcome"
	case Treatment:
		return "treatment"
	case Instrument:
		return "instrument"
	default:
		return "unknown"
	}
}

// Observations holds, for each observation type, one row per training sample.
// Outcomes may be wider than one column. Observations are immutable and are
// shared by every tree trainer of a forest.
type Observations struct {
	byType     map[ObservationType]*mat.Dense
	numSamples int
}

// NewObservations validates that every type carries numSamples rows.
func NewObservations(byType map[ObservationType]*mat.Dense, numSamples int) (*Observations, error) {
	if _, ok := byType[Outcome]; !ok {
		return nil, errors.NewValueError("NewObservations", "an outcome observation is required")
	}
	copied := make(map[ObservationType]*mat.Dense, len(byType))
	for typ, m := range byType {
		r, _ := m.Dims()
		if r != numSamples {
			return nil, errors.NewDimensionError("NewObservations", numSamples, r, 0)
		}
		copied[typ] = mat.DenseCopyOf(m)
	}
	return &Observations{byType: copied, numSamples: numSamples}, nil
}

// ObservationsFromData extracts observation columns from d. treatmentCol and
// instrumentCol are ignored when negative.
func ObservationsFromData(d Data, outcomeCols []int, treatmentCol, instrumentCol int) (*Observations, error) {
	if len(outcomeCols) == 0 {
		return nil, errors.NewValueError("ObservationsFromData", "at least one outcome column is required")
	}
	n := d.NumRows()
	extract := func(cols []int) (*mat.Dense, error) {
		m := mat.NewDense(n, len(cols), nil)
		for j, col := range cols {
			if col < 0 || col >= d.NumCols() {
				return nil, errors.NewValidationError("column", "out of range", col)
			}
			for i := 0; i < n; i++ {
				m.Set(i, j, d.Get(i, col))
			}
		}
		return m, nil
	}

	byType := make(map[ObservationType]*mat.Dense, 3)
	var err error
	if byType[Outcome], err = extract(outcomeCols); err != nil {
		return nil, err
	}
	if treatmentCol >= 0 {
		if byType[Treatment], err = extract([]int{treatmentCol}); err != nil {
			return nil, err
		}
	}
	if instrumentCol >= 0 {
		if byType[Instrument], err = extract([]int{instrumentCol}); err != nil {
			return nil, err
		}
	}
	return &Observations{byType: byType, numSamples: n}, nil
}

// Get returns the row of observation type typ for sample. The returned slice is
// a fresh copy.
func (o *Observations) Get(typ ObservationType, sample int) []float64 {
	m, ok := o.byType[typ]
	if !ok {
		return nil
	}
	return mat.Row(nil, sample, m)
}

// Scalar returns the first column of typ for sample.
func (o *Observations) Scalar(typ ObservationType, sample int) float64 {
	return o.byType[typ].At(sample, 0)
}

// Has reports whether typ is present.
func (o *Observations) Has(typ ObservationType) bool {
	_, ok := o.byType[typ]
	return ok
}

// Width returns the number of columns of typ, or 0 if absent.
func (o *Observations) Width(typ ObservationType) int {
	m, ok := o.byType[typ]
	if !ok {
		return 0
	}
	_, c := m.Dims()
	return c
}

// NumSamples returns the number of training samples.
func (o *Observations) NumSamples() int { return o.numSamples }

// ObservationsByType returns the underlying matrices, keyed by type.
func (o *Observations) ObservationsByType() map[ObservationType]mat.Matrix {
	out := make(map[ObservationType]mat.Matrix, len(o.byType))
	for typ, m := range o.byType {
		out[typ] = m
	}
	return out
}

type gobObservations struct {
	ByType     map[ObservationType]*mat.Dense
	NumSamples int
}

// GobEncode implements gob.GobEncoder.
func (o *Observations) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobObservations{ByType: o.byType, NumSamples: o.numSamples}); err != nil {
		return nil, errors.Wrap(err, "encode observations")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (o *Observations) GobDecode(b []byte) error {
	var g gobObservations
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&g); err != nil {
		return errors.Wrap(err, "decode observations")
	}
	o.byType = g.ByType
	o.numSamples = g.NumSamples
	return nil
}
