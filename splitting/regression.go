package splitting

import (
	"github.com/YuminosukeSato/grf/data"
)

// RegressionSplittingRule maximises the decrease in squared error of vector
// pseudo-outcomes.
type RegressionSplittingRule struct {
	scanner
	samples []int
	rows    [][]float64
}

// FindBestSplit implements SplittingRule.
func (r *RegressionSplittingRule) FindBestSplit(node int, candidateVars []int, responses map[int][]float64,
	samplesByNode [][]int, splitVars []int, splitValues []float64) bool {
	r.samples = r.samples[:0]
	r.rows = r.rows[:0]
	for _, s := range samplesByNode[node] {
		if resp, ok := responses[s]; ok {
			r.samples = append(r.samples, s)
			r.rows = append(r.rows, resp)
		}
	}

	best := r.scan(candidateVars, r.samples, r.rows)
	if !best.found {
		return true
	}
	splitVars[node] = best.variable
	splitValues[node] = best.value
	return false
}

// RegressionSplittingRuleFactory creates RegressionSplittingRules.
type RegressionSplittingRuleFactory struct {
	Alpha float64
}

// NewRegressionSplittingRuleFactory creates a factory whose rules keep at least
// a fraction alpha of a node's samples in each child.
func NewRegressionSplittingRuleFactory(alpha float64) *RegressionSplittingRuleFactory {
	return &RegressionSplittingRuleFactory{Alpha: alpha}
}

// Create implements SplittingRuleFactory.
func (f *RegressionSplittingRuleFactory) Create(d data.Data) SplittingRule {
	return &RegressionSplittingRule{scanner: scanner{d: d, alpha: f.Alpha}}
}
