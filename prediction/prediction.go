// Package prediction holds per-leaf statistics and the strategies that turn
// them into point estimates and variance estimates.
package prediction

import (
	"math"
)

// Prediction is the result for one test sample.
type Prediction struct {
	Predictions       []float64
	VarianceEstimates []float64
}

// NewPrediction creates a Prediction without variance estimates.
func NewPrediction(predictions []float64) Prediction {
	return Prediction{Predictions: predictions}
}

// NewPredictionWithVariance creates a Prediction carrying variance estimates.
func NewPredictionWithVariance(predictions, variance []float64) Prediction {
	return Prediction{Predictions: predictions, VarianceEstimates: variance}
}

// NaNPrediction is the placeholder for a sample that no leaf contributed to.
func NaNPrediction(length int) Prediction {
	p := make([]float64, length)
	for i := range p {
		p[i] = math.NaN()
	}
	return Prediction{Predictions: p}
}

// Size returns the length of the point estimate.
func (p Prediction) Size() int { return len(p.Predictions) }

// ContainsVarianceEstimates reports whether variance was computed.
func (p Prediction) ContainsVarianceEstimates() bool { return len(p.VarianceEstimates) > 0 }

// IsEmpty reports whether this is a NaN placeholder.
func (p Prediction) IsEmpty() bool {
	for _, v := range p.Predictions {
		if !math.IsNaN(v) {
			return false
		}
	}
	return len(p.Predictions) > 0
}
