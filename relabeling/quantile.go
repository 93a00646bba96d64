package relabeling

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/grf/data"
)

// QuantileRelabelingStrategy replaces each outcome with the index of the
// node-level quantile bucket it falls in.
type QuantileRelabelingStrategy struct {
	quantiles []float64
}

// NewQuantileRelabelingStrategy creates the strategy for increasing quantiles in (0, 1].
func NewQuantileRelabelingStrategy(quantiles []float64) *QuantileRelabelingStrategy {
	q := make([]float64, len(quantiles))
	copy(q, quantiles)
	return &QuantileRelabelingStrategy{quantiles: q}
}

// NumClasses is the number of distinct labels produced.
func (r *QuantileRelabelingStrategy) NumClasses() int {
	return len(r.quantiles) + 1
}

// Relabel implements RelabelingStrategy.
func (r *QuantileRelabelingStrategy) Relabel(samples []int, obs *data.Observations) map[int][]float64 {
	n := len(samples)
	if n == 0 {
		return map[int][]float64{}
	}

	sorted := make([]float64, n)
	for i, s := range samples {
		sorted[i] = obs.Scalar(data.Outcome, s)
	}
	sort.Float64s(sorted)

	cutoffs := make([]float64, len(r.quantiles))
	for i, q := range r.quantiles {
		idx := int(math.Ceil(float64(n)*q)) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		cutoffs[i] = sorted[idx]
	}

	out := make(map[int][]float64, n)
	for _, s := range samples {
		y := obs.Scalar(data.Outcome, s)
		class := sort.SearchFloat64s(cutoffs, y)
		out[s] = []float64{float64(class)}
	}
	return out
}
