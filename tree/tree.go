// Package tree implements the index-addressed decision tree shared by every
// forest type, and the trainer that grows it.
package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/prediction"
)

// LeafSplitValue marks a terminal node in SplitValues.
const LeafSplitValue = -1.0

// Tree is an arena of nodes addressed by index. Child index 0 means "no
// child": the root is never anyone's child, so a node whose two child
// indices are 0 is a leaf. A Tree is immutable once attached to a forest.
type Tree struct {
	root             int
	childNodes       [2][]int
	leafSamples      [][]int
	splitVars        []int
	splitValues      []float64
	oobSamples       []int
	predictionValues *prediction.PredictionValues
}

// NewTree assembles a tree from its node arrays. All slices are indexed by
// node and must have equal length.
func NewTree(root int, childNodes [2][]int, leafSamples [][]int, splitVars []int,
	splitValues []float64, oobSamples []int, pv *prediction.PredictionValues) *Tree {
	return &Tree{
		root:             root,
		childNodes:       childNodes,
		leafSamples:      leafSamples,
		splitVars:        splitVars,
		splitValues:      splitValues,
		oobSamples:       oobSamples,
		predictionValues: pv,
	}
}

func (t *Tree) RootNode() int                                  { return t.root }
func (t *Tree) ChildNodes() [2][]int                           { return t.childNodes }
func (t *Tree) LeafSamples() [][]int                           { return t.leafSamples }
func (t *Tree) SplitVars() []int                               { return t.splitVars }
func (t *Tree) SplitValues() []float64                         { return t.splitValues }
func (t *Tree) OOBSamples() []int                              { return t.oobSamples }
func (t *Tree) PredictionValues() *prediction.PredictionValues { return t.predictionValues }

// NumNodes returns the size of the node arena, including pruned slots.
func (t *Tree) NumNodes() int { return len(t.leafSamples) }

// SetLeafSamples replaces the per-node sample lists.
func (t *Tree) SetLeafSamples(leafSamples [][]int) { t.leafSamples = leafSamples }

// SetOOBSamples records the samples this tree was not trained on.
func (t *Tree) SetOOBSamples(samples []int) { t.oobSamples = samples }

// SetPredictionValues attaches precomputed leaf statistics.
func (t *Tree) SetPredictionValues(pv *prediction.PredictionValues) { t.predictionValues = pv }

// IsLeaf reports whether node has no children.
func (t *Tree) IsLeaf(node int) bool {
	return t.childNodes[0][node] == 0 && t.childNodes[1][node] == 0
}

func (t *Tree) isEmptyLeaf(node int) bool {
	return t.IsLeaf(node) && len(t.leafSamples[node]) == 0
}

// FindLeafNode replays the split rules from the root for one row of d.
// Values less than or equal to the threshold go left.
func (t *Tree) FindLeafNode(d data.Data, sample int) int {
	node := t.root
	for !t.IsLeaf(node) {
		if d.Get(sample, t.splitVars[node]) <= t.splitValues[node] {
			node = t.childNodes[0][node]
		} else {
			node = t.childNodes[1][node]
		}
	}
	return node
}

// FindLeafNodes returns the leaf of each of samples, aligned with samples.
func (t *Tree) FindLeafNodes(d data.Data, samples []int) []int {
	leaves := make([]int, len(samples))
	for i, s := range samples {
		leaves[i] = t.FindLeafNode(d, s)
	}
	return leaves
}

// PruneEmptyLeaves removes leaves left without samples after honest
// repopulation. Nodes are never renumbered: a parent whose child has an empty
// leaf is either emptied itself or replaced in its own parent's slot by its
// non-empty child. Orphaned slots stay in the arena.
func (t *Tree) PruneEmptyLeaves() {
	for node := len(t.leafSamples) - 1; node >= 0; node-- {
		if t.IsLeaf(node) {
			continue
		}
		for side := 0; side < 2; side++ {
			child := t.childNodes[side][node]
			if !t.IsLeaf(child) {
				t.childNodes[side][node] = t.pruneNode(child)
			}
		}
	}
	t.root = t.pruneNode(t.root)
}

// pruneNode returns the index that should replace node in its parent.
func (t *Tree) pruneNode(node int) int {
	left := t.childNodes[0][node]
	right := t.childNodes[1][node]
	if !t.isEmptyLeaf(left) && !t.isEmptyLeaf(right) {
		return node
	}

	t.childNodes[0][node] = 0
	t.childNodes[1][node] = 0
	switch {
	case !t.isEmptyLeaf(left):
		return left
	case !t.isEmptyLeaf(right):
		return right
	default:
		return node
	}
}

type gobTree struct {
	Root             int
	Left, Right      []int
	LeafSamples      [][]int
	SplitVars        []int
	SplitValues      []float64
	OOBSamples       []int
	PredictionValues *prediction.PredictionValues
}

// GobEncode implements gob.GobEncoder.
func (t *Tree) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gobTree{
		Root:             t.root,
		Left:             t.childNodes[0],
		Right:            t.childNodes[1],
		LeafSamples:      t.leafSamples,
		SplitVars:        t.splitVars,
		SplitValues:      t.splitValues,
		OOBSamples:       t.oobSamples,
		PredictionValues: t.predictionValues,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode tree")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (t *Tree) GobDecode(b []byte) error {
	var g gobTree
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&g); err != nil {
		return errors.Wrap(err, "decode tree")
	}
	n := len(g.SplitVars)
	// gob drops empty slices
	if len(g.LeafSamples) < n {
		grown := make([][]int, n)
		copy(grown, g.LeafSamples)
		g.LeafSamples = grown
	}
	*t = *NewTree(g.Root, [2][]int{g.Left, g.Right}, g.LeafSamples, g.SplitVars, g.SplitValues, g.OOBSamples, g.PredictionValues)
	return nil
}
