package prediction

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/grf/pkg/errors"
)

// PredictionValues stores, for each node, one vector per value type. A node
// without values (an empty leaf, an internal node, or a tree that did not
// contribute) is empty.
type PredictionValues struct {
	values   [][][]float64
	numNodes int
	numTypes int
}

// NewPredictionValues wraps values indexed as values[node][type].
func NewPredictionValues(values [][][]float64, numNodes, numTypes int) *PredictionValues {
	if len(values) < numNodes {
		grown := make([][][]float64, numNodes)
		copy(grown, values)
		values = grown
	}
	return &PredictionValues{values: values, numNodes: numNodes, numTypes: numTypes}
}

// Get returns the vector of value type typ at node.
func (p *PredictionValues) Get(node, typ int) []float64 {
	return p.values[node][typ]
}

// GetValues returns every value type at node.
func (p *PredictionValues) GetValues(node int) [][]float64 {
	return p.values[node]
}

// Empty reports whether node holds no values.
func (p *PredictionValues) Empty(node int) bool {
	return len(p.values[node]) == 0
}

// NumNodes returns the number of node slots.
func (p *PredictionValues) NumNodes() int { return p.numNodes }

// NumTypes returns the number of value types per node.
func (p *PredictionValues) NumTypes() int { return p.numTypes }

// AllValues exposes the raw slots for serializers.
func (p *PredictionValues) AllValues() [][][]float64 { return p.values }

type gobPredictionValues struct {
	Values   [][][]float64
	NumNodes int
	NumTypes int
}

// GobEncode implements gob.GobEncoder.
func (p *PredictionValues) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gobPredictionValues{Values: p.values, NumNodes: p.numNodes, NumTypes: p.numTypes})
	if err != nil {
		return nil, errors.Wrap(err, "encode prediction values")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (p *PredictionValues) GobDecode(b []byte) error {
	var g gobPredictionValues
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&g); err != nil {
		return errors.Wrap(err, "decode prediction values")
	}
	*p = *NewPredictionValues(g.Values, g.NumNodes, g.NumTypes)
	return nil
}
