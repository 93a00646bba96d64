package forest

import (
	"runtime"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/tree"
)

// ForestOptions configures forest training.
type ForestOptions struct {
	NumTrees int
	// CIGroupSize trees share each half-sample. Values above 1 enable
	// variance estimates.
	CIGroupSize    int
	SampleFraction float64
	// NumThreads of 0 uses every core.
	NumThreads int
	Seed       uint64
	Tree       tree.TreeOptions
}

// DefaultForestOptions returns 2000 honest trees in groups of 2.
func DefaultForestOptions() ForestOptions {
	return ForestOptions{
		NumTrees:       2000,
		CIGroupSize:    2,
		SampleFraction: 0.5,
		Tree:           tree.DefaultTreeOptions(),
	}
}

// Validate checks the options against a dataset with numCols columns.
func (o ForestOptions) Validate(numCols int) error {
	if o.NumTrees < 1 {
		return errors.NewValidationError("num_trees", "must be positive", o.NumTrees)
	}
	if o.CIGroupSize < 1 {
		return errors.NewValidationError("ci_group_size", "must be positive", o.CIGroupSize)
	}
	if o.NumTrees%o.CIGroupSize != 0 {
		return errors.NewValidationError("num_trees", "must be a multiple of ci_group_size", o.NumTrees)
	}
	if o.SampleFraction <= 0 || o.SampleFraction > 1 {
		return errors.NewValidationError("sample_fraction", "must be in (0, 1]", o.SampleFraction)
	}
	if o.CIGroupSize > 1 && o.SampleFraction > 0.5 {
		return errors.NewValidationError("sample_fraction", "must be at most 0.5 when ci_group_size > 1", o.SampleFraction)
	}
	if o.NumThreads < 0 {
		return errors.NewValidationError("num_threads", "must be non-negative", o.NumThreads)
	}
	return o.Tree.Validate(numCols)
}

func (o ForestOptions) threads() int {
	if o.NumThreads == 0 {
		return runtime.NumCPU()
	}
	return o.NumThreads
}
