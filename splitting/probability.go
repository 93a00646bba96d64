package splitting

import (
	"github.com/YuminosukeSato/grf/data"
)

// ProbabilitySplittingRule splits class-labelled pseudo-outcomes by Gini gain.
// Labels are encoded one-hot, under which the squared-error score equals
// Σ_c (n_L,c²/n_L + n_R,c²/n_R) − Σ_c n_c²/n.
type ProbabilitySplittingRule struct {
	scanner
	numClasses int
	samples    []int
	rows       [][]float64
	onehot     []float64
}

// FindBestSplit implements SplittingRule. Responses whose label lies outside
// [0, numClasses) are ignored.
func (r *ProbabilitySplittingRule) FindBestSplit(node int, candidateVars []int, responses map[int][]float64,
	samplesByNode [][]int, splitVars []int, splitValues []float64) bool {
	size := len(samplesByNode[node])
	r.onehot = resize(r.onehot, size*r.numClasses)
	for i := range r.onehot {
		r.onehot[i] = 0
	}
	r.samples = r.samples[:0]
	r.rows = r.rows[:0]
	for _, s := range samplesByNode[node] {
		resp, ok := responses[s]
		if !ok || len(resp) == 0 {
			continue
		}
		class := int(resp[0])
		if class < 0 || class >= r.numClasses {
			continue
		}
		k := len(r.rows)
		row := r.onehot[k*r.numClasses : (k+1)*r.numClasses]
		row[class] = 1
		r.samples = append(r.samples, s)
		r.rows = append(r.rows, row)
	}

	best := r.scan(candidateVars, r.samples, r.rows)
	if !best.found {
		return true
	}
	splitVars[node] = best.variable
	splitValues[node] = best.value
	return false
}

// ProbabilitySplittingRuleFactory creates ProbabilitySplittingRules.
type ProbabilitySplittingRuleFactory struct {
	NumClasses int
	Alpha      float64
}

// NewProbabilitySplittingRuleFactory creates a factory for numClasses labels.
func NewProbabilitySplittingRuleFactory(numClasses int, alpha float64) *ProbabilitySplittingRuleFactory {
	return &ProbabilitySplittingRuleFactory{NumClasses: numClasses, Alpha: alpha}
}

// Create implements SplittingRuleFactory.
func (f *ProbabilitySplittingRuleFactory) Create(d data.Data) SplittingRule {
	return &ProbabilitySplittingRule{
		scanner:    scanner{d: d, alpha: f.Alpha},
		numClasses: f.NumClasses,
	}
}
