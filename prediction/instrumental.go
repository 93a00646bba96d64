package prediction

import (
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Value types of the instrumental strategy.
const (
	InstrumentalOutcome = iota
	InstrumentalTreatment
	InstrumentalInstrument
	InstrumentalOutcomeInstrument
	InstrumentalTreatmentInstrument
	numInstrumentalTypes
)

// InstrumentalPredictionStrategy estimates a local instrumental-variable
// treatment effect. With the instrument equal to the treatment it is the
// causal forest estimator.
type InstrumentalPredictionStrategy struct {
	debiaser ObjectiveBayesDebiaser
}

// NewInstrumentalPredictionStrategy creates the strategy.
func NewInstrumentalPredictionStrategy() *InstrumentalPredictionStrategy {
	return &InstrumentalPredictionStrategy{}
}

func (s *InstrumentalPredictionStrategy) PredictionLength() int { return 1 }

func (s *InstrumentalPredictionStrategy) PredictionValueLength() int { return numInstrumentalTypes }

// PrecomputePredictionValues stores E[Y], E[W], E[Z], E[YZ] and E[WZ] per leaf.
func (s *InstrumentalPredictionStrategy) PrecomputePredictionValues(leafSamples [][]int, obs *data.Observations) *PredictionValues {
	values := make([][][]float64, len(leafSamples))
	for leaf, samples := range leafSamples {
		if len(samples) == 0 {
			continue
		}
		var sum [numInstrumentalTypes]float64
		for _, sample := range samples {
			y := obs.Scalar(data.Outcome, sample)
			w := obs.Scalar(data.Treatment, sample)
			z := obs.Scalar(data.Instrument, sample)
			sum[InstrumentalOutcome] += y
			sum[InstrumentalTreatment] += w
			sum[InstrumentalInstrument] += z
			sum[InstrumentalOutcomeInstrument] += y * z
			sum[InstrumentalTreatmentInstrument] += w * z
		}
		n := float64(len(samples))
		v := make([][]float64, numInstrumentalTypes)
		for typ := range v {
			v[typ] = []float64{sum[typ] / n}
		}
		values[leaf] = v
	}
	return NewPredictionValues(values, len(leafSamples), numInstrumentalTypes)
}

func effects(average [][]float64) (tau, mu float64) {
	y := average[InstrumentalOutcome][0]
	w := average[InstrumentalTreatment][0]
	z := average[InstrumentalInstrument][0]
	yz := average[InstrumentalOutcomeInstrument][0]
	wz := average[InstrumentalTreatmentInstrument][0]

	tau = (yz - y*z) / (wz - w*z)
	mu = y - w*tau
	return tau, mu
}

// Predict returns the local treatment effect.
func (s *InstrumentalPredictionStrategy) Predict(average [][]float64) []float64 {
	tau, _ := effects(average)
	return []float64{tau}
}

// ComputeVariance applies the jackknife to the estimating-equation residuals
// ψ = (YZ − Zμ − WZτ, Y − μ − Wτ) and projects it through the inverse
// Jacobian of the moment conditions.
func (s *InstrumentalPredictionStrategy) ComputeVariance(average [][]float64, leafValues *PredictionValues, ciGroupSize int) ([]float64, error) {
	tau, mu := effects(average)

	varBetween, groupNoise, numGoodGroups, err := groupedJackknife(leafValues, ciGroupSize, 2, func(tree int) []float64 {
		y := leafValues.Get(tree, InstrumentalOutcome)[0]
		w := leafValues.Get(tree, InstrumentalTreatment)[0]
		z := leafValues.Get(tree, InstrumentalInstrument)[0]
		yz := leafValues.Get(tree, InstrumentalOutcomeInstrument)[0]
		wz := leafValues.Get(tree, InstrumentalTreatmentInstrument)[0]
		return []float64{
			yz - z*mu - wz*tau,
			y - mu - w*tau,
		}
	})
	if err != nil {
		return nil, err
	}

	delta := mat.NewDense(2, 2, []float64{
		average[InstrumentalTreatmentInstrument][0], average[InstrumentalInstrument][0],
		average[InstrumentalTreatment][0], 1,
	})
	var inverse mat.Dense
	if err := inverse.Inverse(delta); err != nil {
		return nil, errors.Wrap(err, "invert instrumental moment jacobian")
	}
	weights := mat.NewVecDense(2, mat.Row(nil, 0, &inverse))

	between := mat.Inner(weights, varBetween, weights)
	noise := mat.Inner(weights, groupNoise, weights)
	return []float64{s.debiaser.Debias(between, noise, numGoodGroups)}, nil
}
