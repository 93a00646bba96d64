package prediction

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/grf/data"
)

// QuantilePredictionStrategy predicts weighted empirical quantiles of the
// outcome of a sample's forest neighbours.
type QuantilePredictionStrategy struct {
	quantiles []float64
}

// NewQuantilePredictionStrategy creates a strategy for increasing quantiles in (0, 1).
func NewQuantilePredictionStrategy(quantiles []float64) *QuantilePredictionStrategy {
	q := make([]float64, len(quantiles))
	copy(q, quantiles)
	return &QuantilePredictionStrategy{quantiles: q}
}

func (s *QuantilePredictionStrategy) PredictionLength() int { return len(s.quantiles) }

type weightedOutcome struct {
	outcome float64
	weight  float64
}

// Predict implements DefaultPredictionStrategy.
func (s *QuantilePredictionStrategy) Predict(_ int, weightsByNeighbor map[int]float64, obs *data.Observations) []float64 {
	neighbors := make([]weightedOutcome, 0, len(weightsByNeighbor))
	for sample, w := range weightsByNeighbor {
		if w <= 0 {
			continue
		}
		neighbors = append(neighbors, weightedOutcome{outcome: obs.Scalar(data.Outcome, sample), weight: w})
	}

	out := make([]float64, len(s.quantiles))
	if len(neighbors) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	// ties broken by weight so map iteration order cannot change the result
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].outcome != neighbors[j].outcome {
			return neighbors[i].outcome < neighbors[j].outcome
		}
		return neighbors[i].weight < neighbors[j].weight
	})
	total := 0.0
	for _, n := range neighbors {
		total += n.weight
	}

	for i, q := range s.quantiles {
		out[i] = neighbors[len(neighbors)-1].outcome
		cumulative := 0.0
		for _, n := range neighbors {
			cumulative += n.weight / total
			if cumulative >= q {
				out[i] = n.outcome
				break
			}
		}
	}
	return out
}
