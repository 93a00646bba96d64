package tree

import (
	"github.com/YuminosukeSato/grf/pkg/errors"
)

// TreeOptions configures how each tree is grown.
type TreeOptions struct {
	// Honesty splits on one half of a tree's samples and fills leaves with the other.
	Honesty bool
	// Mtry is the mean number of candidate variables per split.
	Mtry int
	// MinNodeSize is the largest node that is never split.
	MinNodeSize int
	// DeterministicVars are candidates at every split.
	DeterministicVars []int
	// NoSplitVariables are never split on, e.g. outcome and treatment columns.
	NoSplitVariables []int
	// SplitSelectVars and SplitSelectWeights, when set, replace the uniform
	// draw of candidate variables by a weighted one.
	SplitSelectVars    []int
	SplitSelectWeights []float64
}

// DefaultTreeOptions returns honest trees with mtry 1 and min node size 5.
func DefaultTreeOptions() TreeOptions {
	return TreeOptions{
		Honesty:     true,
		Mtry:        1,
		MinNodeSize: 5,
	}
}

// Validate checks the options against a dataset with numCols columns.
func (o TreeOptions) Validate(numCols int) error {
	if o.Mtry < 0 {
		return errors.NewValidationError("mtry", "must be non-negative", o.Mtry)
	}
	if o.MinNodeSize < 0 {
		return errors.NewValidationError("min_node_size", "must be non-negative", o.MinNodeSize)
	}
	if len(o.SplitSelectVars) != len(o.SplitSelectWeights) {
		return errors.NewDimensionError("split_select_weights", len(o.SplitSelectVars), len(o.SplitSelectWeights), 1)
	}
	for _, w := range o.SplitSelectWeights {
		if w < 0 {
			return errors.NewValidationError("split_select_weights", "must be non-negative", w)
		}
	}

	checkColumns := func(name string, cols []int) error {
		for _, c := range cols {
			if c < 0 || c >= numCols {
				return errors.NewValidationError(name, "column index out of range", c)
			}
		}
		return nil
	}
	if err := checkColumns("deterministic_vars", o.DeterministicVars); err != nil {
		return err
	}
	if err := checkColumns("no_split_variables", o.NoSplitVariables); err != nil {
		return err
	}
	if err := checkColumns("split_select_vars", o.SplitSelectVars); err != nil {
		return err
	}

	noSplit := make(map[int]bool, len(o.NoSplitVariables))
	for _, c := range o.NoSplitVariables {
		noSplit[c] = true
	}
	for _, c := range o.DeterministicVars {
		if noSplit[c] {
			return errors.NewValidationError("deterministic_vars", "variable is also in no_split_variables", c)
		}
	}
	if len(noSplit) >= numCols {
		return errors.NewValidationError("no_split_variables", "no column is left to split on", len(noSplit))
	}
	return nil
}
