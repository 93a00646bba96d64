// Package forest trains ensembles of trees and predicts with them.
package forest

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/tree"
)

// Forest is a trained ensemble. Tree t belongs to CI group t / CIGroupSize.
// A Forest is read-only once returned by a trainer.
type Forest struct {
	trees        []*tree.Tree
	observations *data.Observations
	ciGroupSize  int
	numVariables int
}

// NewForest assembles a forest.
func NewForest(trees []*tree.Tree, obs *data.Observations, ciGroupSize, numVariables int) *Forest {
	return &Forest{trees: trees, observations: obs, ciGroupSize: ciGroupSize, numVariables: numVariables}
}

func (f *Forest) Trees() []*tree.Tree               { return f.trees }
func (f *Forest) Observations() *data.Observations { return f.observations }
func (f *Forest) CIGroupSize() int                 { return f.ciGroupSize }

// NumVariables is the column count of the training data.
func (f *Forest) NumVariables() int { return f.numVariables }

// NumTrees returns the number of trees.
func (f *Forest) NumTrees() int { return len(f.trees) }

type gobForest struct {
	Trees        []*tree.Tree
	Observations *data.Observations
	CIGroupSize  int
	NumVariables int
}

// GobEncode implements gob.GobEncoder.
func (f *Forest) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gobForest{
		Trees:        f.trees,
		Observations: f.observations,
		CIGroupSize:  f.ciGroupSize,
		NumVariables: f.numVariables,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode forest")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (f *Forest) GobDecode(b []byte) error {
	var g gobForest
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&g); err != nil {
		return errors.Wrap(err, "decode forest")
	}
	*f = *NewForest(g.Trees, g.Observations, g.CIGroupSize, g.NumVariables)
	return nil
}
