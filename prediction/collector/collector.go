// Package collector aggregates the leaves a test sample reaches across a
// forest into a prediction.
package collector

import (
	"sync"
	"sync/atomic"

	"github.com/YuminosukeSato/grf/core/parallel"
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/tree"
	"gonum.org/v1/gonum/floats"
)

// LeafLookup describes where test samples land.
//
// LeafNodesByTree[t][s] is the leaf of tree t reached by test sample s.
// TreesBySample, when non-nil, restricts sample s to the trees t with
// TreesBySample[s][t] set; this realises out-of-bag prediction.
type LeafLookup struct {
	NumSamples      int
	LeafNodesByTree [][]int
	TreesBySample   [][]bool
}

func (l LeafLookup) include(sample, tree int) bool {
	return l.TreesBySample == nil || l.TreesBySample[sample][tree]
}

// errorSink keeps the failure of the lowest sample index so that the
// reported error does not depend on scheduling.
type errorSink struct {
	mu     sync.Mutex
	sample int
	err    error
}

func (e *errorSink) record(sample int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil || sample < e.sample {
		e.sample, e.err = sample, err
	}
}

// OptimizedPredictionCollector averages precomputed leaf statistics.
type OptimizedPredictionCollector struct {
	strategy    prediction.OptimizedPredictionStrategy
	ciGroupSize int
	numThreads  int
}

// NewOptimizedPredictionCollector creates a collector. Variance is estimated
// when ciGroupSize exceeds 1. numThreads of 0 uses every core.
func NewOptimizedPredictionCollector(strategy prediction.OptimizedPredictionStrategy, ciGroupSize, numThreads int) *OptimizedPredictionCollector {
	return &OptimizedPredictionCollector{strategy: strategy, ciGroupSize: ciGroupSize, numThreads: numThreads}
}

// CollectPredictions returns one prediction per test sample. Samples reached
// by no non-empty leaf get a NaN placeholder and are reported through
// errors.Warn as an EmptyNeighborhoodWarning.
func (c *OptimizedPredictionCollector) CollectPredictions(trees []*tree.Tree, lookup LeafLookup) ([]prediction.Prediction, error) {
	predictions := make([]prediction.Prediction, lookup.NumSamples)
	var sink errorSink
	var empty int64

	parallel.ParallelizeN(lookup.NumSamples, c.numThreads, func(start, end int) {
		for sample := start; sample < end; sample++ {
			p, ok, err := c.collect(sample, trees, lookup)
			if err != nil {
				sink.record(sample, err)
				return
			}
			if !ok {
				atomic.AddInt64(&empty, 1)
			}
			predictions[sample] = p
		}
	})

	if sink.err != nil {
		return nil, sink.err
	}
	if empty > 0 {
		errors.Warn(errors.NewEmptyNeighborhoodWarning(int(empty), lookup.NumSamples))
	}
	return predictions, nil
}

func (c *OptimizedPredictionCollector) collect(sample int, trees []*tree.Tree, lookup LeafLookup) (prediction.Prediction, bool, error) {
	numTypes := c.strategy.PredictionValueLength()
	average := make([][]float64, numTypes)

	var perTree [][][]float64
	if c.ciGroupSize > 1 {
		perTree = make([][][]float64, len(trees))
	}

	numLeaves := 0
	for t, tr := range trees {
		if !lookup.include(sample, t) {
			continue
		}
		pv := tr.PredictionValues()
		node := lookup.LeafNodesByTree[t][sample]
		if pv == nil || pv.Empty(node) {
			continue
		}

		values := pv.GetValues(node)
		for typ := 0; typ < numTypes; typ++ {
			if average[typ] == nil {
				average[typ] = make([]float64, len(values[typ]))
			}
			floats.Add(average[typ], values[typ])
		}
		if perTree != nil {
			perTree[t] = values
		}
		numLeaves++
	}

	if numLeaves == 0 {
		return prediction.NaNPrediction(c.strategy.PredictionLength()), false, nil
	}

	for typ := range average {
		floats.Scale(1/float64(numLeaves), average[typ])
	}

	point := c.strategy.Predict(average)
	if len(point) != c.strategy.PredictionLength() {
		return prediction.Prediction{}, false, errors.NewLengthMismatchError(sample, c.strategy.PredictionLength(), len(point))
	}

	if c.ciGroupSize <= 1 {
		return prediction.NewPrediction(point), true, nil
	}

	leafValues := prediction.NewPredictionValues(perTree, len(trees), numTypes)
	variance, err := c.strategy.ComputeVariance(average, leafValues, c.ciGroupSize)
	if err != nil {
		return prediction.Prediction{}, false, errors.Wrapf(err, "variance for sample %d", sample)
	}
	return prediction.NewPredictionWithVariance(point, variance), true, nil
}

// DefaultPredictionCollector weights each training sample by how often it
// shares a leaf with the test sample and hands the weights to a
// DefaultPredictionStrategy.
type DefaultPredictionCollector struct {
	strategy   prediction.DefaultPredictionStrategy
	numThreads int
}

// NewDefaultPredictionCollector creates a collector.
func NewDefaultPredictionCollector(strategy prediction.DefaultPredictionStrategy, numThreads int) *DefaultPredictionCollector {
	return &DefaultPredictionCollector{strategy: strategy, numThreads: numThreads}
}

// CollectPredictions returns one prediction per test sample.
func (c *DefaultPredictionCollector) CollectPredictions(trees []*tree.Tree, lookup LeafLookup, obs *data.Observations) ([]prediction.Prediction, error) {
	predictions := make([]prediction.Prediction, lookup.NumSamples)
	var empty int64

	parallel.ParallelizeN(lookup.NumSamples, c.numThreads, func(start, end int) {
		for sample := start; sample < end; sample++ {
			weights := NeighborWeights(sample, trees, lookup)
			if len(weights) == 0 {
				atomic.AddInt64(&empty, 1)
				predictions[sample] = prediction.NaNPrediction(c.strategy.PredictionLength())
				continue
			}
			predictions[sample] = prediction.NewPrediction(c.strategy.Predict(sample, weights, obs))
		}
	})

	if empty > 0 {
		errors.Warn(errors.NewEmptyNeighborhoodWarning(int(empty), lookup.NumSamples))
	}
	return predictions, nil
}

// NeighborWeights returns, for one test sample, the average over contributing
// trees of 1/|leaf| for each training sample sharing its leaf.
func NeighborWeights(sample int, trees []*tree.Tree, lookup LeafLookup) map[int]float64 {
	weights := make(map[int]float64)
	contributing := 0
	for t, tr := range trees {
		if !lookup.include(sample, t) {
			continue
		}
		leaf := tr.LeafSamples()[lookup.LeafNodesByTree[t][sample]]
		if len(leaf) == 0 {
			continue
		}
		contributing++
		w := 1 / float64(len(leaf))
		for _, s := range leaf {
			weights[s] += w
		}
	}
	for s := range weights {
		weights[s] /= float64(contributing)
	}
	return weights
}
