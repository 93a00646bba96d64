package prediction

import (
	"github.com/YuminosukeSato/grf/data"
)

// OptimizedPredictionStrategy predicts from statistics precomputed per leaf,
// so prediction only averages those statistics over the forest.
type OptimizedPredictionStrategy interface {
	// PredictionLength is the width of every point estimate.
	PredictionLength() int

	// PredictionValueLength is the number of value types stored per leaf.
	PredictionValueLength() int

	// PrecomputePredictionValues summarises the samples of each leaf. Empty
	// leaves stay empty.
	PrecomputePredictionValues(leafSamples [][]int, obs *data.Observations) *PredictionValues

	// Predict maps the forest-averaged values, indexed by value type, to a
	// point estimate.
	Predict(average [][]float64) []float64

	// ComputeVariance estimates the variance of the point estimate from the
	// per-tree values of one sample. leafValues is indexed by tree.
	ComputeVariance(average [][]float64, leafValues *PredictionValues, ciGroupSize int) ([]float64, error)
}

// DefaultPredictionStrategy predicts from the weighted training neighbours of
// a sample. It is used when a target cannot be summarised per leaf.
type DefaultPredictionStrategy interface {
	PredictionLength() int
	Predict(sample int, weightsByNeighbor map[int]float64, obs *data.Observations) []float64
}
