package forest

import (
	"github.com/YuminosukeSato/grf/core/parallel"
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/prediction/collector"
)

// ForestPredictor predicts with a trained forest through either an optimized
// or a default strategy.
type ForestPredictor struct {
	optimized        prediction.OptimizedPredictionStrategy
	fallback         prediction.DefaultPredictionStrategy
	numThreads       int
	estimateVariance bool
}

// NewOptimizedForestPredictor predicts from precomputed leaf statistics.
// Variance is estimated when estimateVariance is set and the forest was
// grown with CI groups.
func NewOptimizedForestPredictor(strategy prediction.OptimizedPredictionStrategy, numThreads int, estimateVariance bool) *ForestPredictor {
	return &ForestPredictor{optimized: strategy, numThreads: numThreads, estimateVariance: estimateVariance}
}

// NewDefaultForestPredictor predicts from neighbour weights.
func NewDefaultForestPredictor(strategy prediction.DefaultPredictionStrategy, numThreads int) *ForestPredictor {
	return &ForestPredictor{fallback: strategy, numThreads: numThreads}
}

// Predict returns one prediction per row of d.
func (p *ForestPredictor) Predict(f *Forest, d data.Data) ([]prediction.Prediction, error) {
	lookup, err := p.lookup(f, d)
	if err != nil {
		return nil, err
	}
	return p.collect(f, lookup)
}

// PredictOOB predicts each training row using only the trees it was not
// trained on. d must be the training data.
func (p *ForestPredictor) PredictOOB(f *Forest, d data.Data) ([]prediction.Prediction, error) {
	if d.NumRows() != f.Observations().NumSamples() {
		return nil, errors.NewDimensionError("PredictOOB", f.Observations().NumSamples(), d.NumRows(), 0)
	}
	lookup, err := p.lookup(f, d)
	if err != nil {
		return nil, err
	}

	mask := make([][]bool, d.NumRows())
	for s := range mask {
		mask[s] = make([]bool, f.NumTrees())
	}
	for t, tr := range f.Trees() {
		for _, s := range tr.OOBSamples() {
			mask[s][t] = true
		}
	}
	lookup.TreesBySample = mask
	return p.collect(f, lookup)
}

func (p *ForestPredictor) lookup(f *Forest, d data.Data) (collector.LeafLookup, error) {
	if d.NumCols() != f.NumVariables() {
		return collector.LeafLookup{}, errors.NewDimensionError("Predict", f.NumVariables(), d.NumCols(), 1)
	}
	rows := make([]int, d.NumRows())
	for i := range rows {
		rows[i] = i
	}

	trees := f.Trees()
	leaves := make([][]int, len(trees))
	parallel.ParallelizeN(len(trees), p.numThreads, func(start, end int) {
		for t := start; t < end; t++ {
			leaves[t] = trees[t].FindLeafNodes(d, rows)
		}
	})
	return collector.LeafLookup{NumSamples: d.NumRows(), LeafNodesByTree: leaves}, nil
}

func (p *ForestPredictor) collect(f *Forest, lookup collector.LeafLookup) ([]prediction.Prediction, error) {
	if p.optimized != nil {
		ci := 1
		if p.estimateVariance {
			ci = f.CIGroupSize()
		}
		return collector.NewOptimizedPredictionCollector(p.optimized, ci, p.numThreads).CollectPredictions(f.Trees(), lookup)
	}
	return collector.NewDefaultPredictionCollector(p.fallback, p.numThreads).CollectPredictions(f.Trees(), lookup, f.Observations())
}
