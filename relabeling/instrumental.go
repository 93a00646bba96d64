package relabeling

import (
	"math"

	"github.com/YuminosukeSato/grf/data"
)

// minEffectDenominator is the smallest |Σ(Z−Z̄)(W−W̄)| for which a local
// effect is estimated.
const minEffectDenominator = 1e-10

// InstrumentalRelabelingStrategy relabels each sample with its influence on
// the local instrumental-variable effect. With the instrument equal to the
// treatment it yields the causal-forest gradient.
type InstrumentalRelabelingStrategy struct {
	splitRegularization float64
}

// NewInstrumentalRelabelingStrategy creates the strategy. splitRegularization
// in [0, 1] blends the instrument and the treatment when weighting residuals.
func NewInstrumentalRelabelingStrategy(splitRegularization float64) *InstrumentalRelabelingStrategy {
	return &InstrumentalRelabelingStrategy{splitRegularization: splitRegularization}
}

// Relabel implements RelabelingStrategy.
func (r *InstrumentalRelabelingStrategy) Relabel(samples []int, obs *data.Observations) map[int][]float64 {
	if len(samples) == 0 {
		return map[int][]float64{}
	}

	n := float64(len(samples))
	var sumY, sumW, sumZ float64
	for _, s := range samples {
		sumY += obs.Scalar(data.Outcome, s)
		sumW += obs.Scalar(data.Treatment, s)
		sumZ += obs.Scalar(data.Instrument, s)
	}
	meanY, meanW, meanZ := sumY/n, sumW/n, sumZ/n

	var num, den float64
	for _, s := range samples {
		dz := obs.Scalar(data.Instrument, s) - meanZ
		num += dz * (obs.Scalar(data.Outcome, s) - meanY)
		den += dz * (obs.Scalar(data.Treatment, s) - meanW)
	}
	if math.Abs(den) < minEffectDenominator {
		return map[int][]float64{}
	}
	tau := num / den

	lambda := r.splitRegularization
	out := make(map[int][]float64, len(samples))
	for _, s := range samples {
		dy := obs.Scalar(data.Outcome, s) - meanY
		dw := obs.Scalar(data.Treatment, s) - meanW
		dz := obs.Scalar(data.Instrument, s) - meanZ
		regularized := (1-lambda)*dz + lambda*dw
		out[s] = []float64{regularized * (dy - tau*dw)}
	}
	return out
}
