package prediction

import (
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
)

// RegressionOutcome is the only value type of the regression strategy: the
// average outcome row of a leaf.
const RegressionOutcome = 0

// RegressionPredictionStrategy estimates the conditional mean of a possibly
// multi-column outcome.
type RegressionPredictionStrategy struct {
	outcomeWidth int
	debiaser     ObjectiveBayesDebiaser
}

// NewRegressionPredictionStrategy creates a strategy for outcomes of the given width.
func NewRegressionPredictionStrategy(outcomeWidth int) *RegressionPredictionStrategy {
	if outcomeWidth < 1 {
		outcomeWidth = 1
	}
	return &RegressionPredictionStrategy{outcomeWidth: outcomeWidth}
}

func (s *RegressionPredictionStrategy) PredictionLength() int { return s.outcomeWidth }

func (s *RegressionPredictionStrategy) PredictionValueLength() int { return 1 }

// PrecomputePredictionValues averages the outcome rows of each leaf.
func (s *RegressionPredictionStrategy) PrecomputePredictionValues(leafSamples [][]int, obs *data.Observations) *PredictionValues {
	values := make([][][]float64, len(leafSamples))
	for leaf, samples := range leafSamples {
		if len(samples) == 0 {
			continue
		}
		avg := make([]float64, s.outcomeWidth)
		for _, sample := range samples {
			for k, v := range obs.Get(data.Outcome, sample) {
				if k < len(avg) {
					avg[k] += v
				}
			}
		}
		for k := range avg {
			avg[k] /= float64(len(samples))
		}
		values[leaf] = [][]float64{avg}
	}
	return NewPredictionValues(values, len(leafSamples), 1)
}

// Predict returns the averaged outcome.
func (s *RegressionPredictionStrategy) Predict(average [][]float64) []float64 {
	out := make([]float64, len(average[RegressionOutcome]))
	copy(out, average[RegressionOutcome])
	return out
}

// ComputeVariance returns one debiased variance per outcome column.
func (s *RegressionPredictionStrategy) ComputeVariance(average [][]float64, leafValues *PredictionValues, ciGroupSize int) ([]float64, error) {
	mean := average[RegressionOutcome]
	dim := len(mean)
	if dim == 0 {
		return nil, errors.NewValueError("ComputeVariance", "empty average outcome")
	}

	varBetween, groupNoise, numGoodGroups, err := groupedJackknife(leafValues, ciGroupSize, dim, func(tree int) []float64 {
		leaf := leafValues.Get(tree, RegressionOutcome)
		psi := make([]float64, dim)
		for k := range psi {
			psi[k] = leaf[k] - mean[k]
		}
		return psi
	})
	if err != nil {
		return nil, err
	}

	variance := make([]float64, dim)
	for k := range variance {
		variance[k] = s.debiaser.Debias(varBetween.At(k, k), groupNoise.At(k, k), numGoodGroups)
	}
	return variance, nil
}
