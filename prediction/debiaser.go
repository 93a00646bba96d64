package prediction

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ObjectiveBayesDebiaser corrects a between-group variance estimate for the
// noise contributed by small groups. The result is never negative.
type ObjectiveBayesDebiaser struct{}

// Debias returns the posterior mean of the variance under a flat prior
// truncated at zero, given the naive estimate varBetween − groupNoise and its
// approximate standard error.
func (ObjectiveBayesDebiaser) Debias(varBetween, groupNoise float64, numGoodGroups int) float64 {
	initial := varBetween - groupNoise
	se := math.Max(varBetween, groupNoise) * math.Sqrt(2/float64(numGoodGroups))
	if se == 0 || math.IsNaN(se) {
		return math.Max(initial, 0)
	}

	ratio := initial / se
	denominator := distuv.UnitNormal.CDF(ratio)
	if denominator == 0 {
		return 0
	}
	numerator := distuv.UnitNormal.Prob(ratio)
	debiased := initial + se*numerator/denominator
	if debiased < 0 {
		// rounding only
		return 0
	}
	return debiased
}
