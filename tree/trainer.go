package tree

import (
	"github.com/YuminosukeSato/grf/core/sampling"
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/relabeling"
	"github.com/YuminosukeSato/grf/splitting"
)

// TreeTrainer grows single trees. It holds only read-only strategies and may
// be shared by concurrent workers as long as each brings its own sampler.
type TreeTrainer struct {
	relabeling         relabeling.RelabelingStrategy
	splittingFactory   splitting.SplittingRuleFactory
	predictionStrategy prediction.OptimizedPredictionStrategy
	options            TreeOptions
}

// NewTreeTrainer creates a trainer. predictionStrategy may be nil, in which
// case no leaf statistics are precomputed.
func NewTreeTrainer(r relabeling.RelabelingStrategy, f splitting.SplittingRuleFactory,
	p prediction.OptimizedPredictionStrategy, options TreeOptions) *TreeTrainer {
	return &TreeTrainer{
		relabeling:         r,
		splittingFactory:   f,
		predictionStrategy: p,
		options:            options,
	}
}

// Options returns the tree options.
func (t *TreeTrainer) Options() TreeOptions { return t.options }

// PredictionStrategy returns the attached strategy, or nil.
func (t *TreeTrainer) PredictionStrategy() prediction.OptimizedPredictionStrategy {
	return t.predictionStrategy
}

// growth holds the node arrays of a tree under construction.
type growth struct {
	childNodes  [2][]int
	samples     [][]int
	splitVars   []int
	splitValues []float64
}

func (g *growth) addNode() int {
	g.childNodes[0] = append(g.childNodes[0], 0)
	g.childNodes[1] = append(g.childNodes[1], 0)
	g.samples = append(g.samples, nil)
	g.splitVars = append(g.splitVars, 0)
	g.splitValues = append(g.splitValues, 0)
	return len(g.samples) - 1
}

// Train grows one tree on samples. All randomness is drawn from sampler.
func (t *TreeTrainer) Train(d data.Data, obs *data.Observations, sampler *sampling.RandomSampler, samples []int) (*Tree, error) {
	g := &growth{}
	g.addNode()

	var leafCandidates []int
	if t.options.Honesty {
		g.samples[0], leafCandidates = sampler.Subsample(samples, 0.5)
	} else {
		g.samples[0] = append([]int(nil), samples...)
	}

	rule := t.splittingFactory.Create(d)

	numOpenNodes := 1
	for i := 0; numOpenNodes > 0; i++ {
		candidates, err := t.splitVariableSubset(sampler, d.NumCols())
		if err != nil {
			return nil, err
		}
		if t.splitNode(i, g, rule, candidates, d, obs) {
			numOpenNodes--
		} else {
			g.samples[i] = nil
			numOpenNodes++
		}
	}

	tr := NewTree(0, g.childNodes, g.samples, g.splitVars, g.splitValues, nil, nil)

	if len(leafCandidates) > 0 {
		t.repopulateLeafNodes(tr, d, leafCandidates)
	}

	if t.predictionStrategy != nil {
		tr.SetPredictionValues(t.predictionStrategy.PrecomputePredictionValues(tr.LeafSamples(), obs))
	}
	return tr, nil
}

// splitNode returns true when node is terminal. Otherwise it appends the two
// children and partitions the node's samples between them.
func (t *TreeTrainer) splitNode(node int, g *growth, rule splitting.SplittingRule, candidates []int,
	d data.Data, obs *data.Observations) bool {
	if t.isTerminal(node, g, rule, candidates, obs) {
		g.splitValues[node] = LeafSplitValue
		return true
	}

	splitVar := g.splitVars[node]
	splitValue := g.splitValues[node]

	left := g.addNode()
	g.childNodes[0][node] = left
	right := g.addNode()
	g.childNodes[1][node] = right

	for _, s := range g.samples[node] {
		if d.Get(s, splitVar) <= splitValue {
			g.samples[left] = append(g.samples[left], s)
		} else {
			g.samples[right] = append(g.samples[right], s)
		}
	}
	return false
}

func (t *TreeTrainer) isTerminal(node int, g *growth, rule splitting.SplittingRule, candidates []int,
	obs *data.Observations) bool {
	samples := g.samples[node]
	if len(samples) <= t.options.MinNodeSize {
		return true
	}
	if isPure(samples, obs) {
		return true
	}
	responses := t.relabeling.Relabel(samples, obs)
	if len(responses) == 0 {
		return true
	}
	return rule.FindBestSplit(node, candidates, responses, g.samples, g.splitVars, g.splitValues)
}

func isPure(samples []int, obs *data.Observations) bool {
	if len(samples) == 0 {
		return true
	}
	first := obs.Get(data.Outcome, samples[0])
	for _, s := range samples[1:] {
		v := obs.Get(data.Outcome, s)
		for k := range first {
			if v[k] != first[k] {
				return false
			}
		}
	}
	return true
}

// splitVariableSubset draws the candidate variables of one node. The target
// size is Poisson(mtry) clamped to [1, splittable columns]. Deterministic
// variables count toward it and the rest is drawn from the remaining pool,
// never more than the pool holds.
func (t *TreeTrainer) splitVariableSubset(sampler *sampling.RandomSampler, numCols int) ([]int, error) {
	result := append([]int(nil), t.options.DeterministicVars...)

	numIndependent := numCols - len(t.options.NoSplitVariables)
	splitMtry := sampler.SamplePoisson(float64(t.options.Mtry))
	if splitMtry > numIndependent {
		splitMtry = numIndependent
	}
	if splitMtry < 1 {
		splitMtry = 1
	}

	draws := splitMtry - len(result)
	if draws <= 0 {
		return result, nil
	}

	if len(t.options.SplitSelectWeights) == 0 {
		skip := make([]int, 0, len(t.options.NoSplitVariables)+len(result))
		skip = append(skip, t.options.NoSplitVariables...)
		skip = append(skip, result...)
		available := numCols - countDistinct(skip, numCols)
		if draws > available {
			draws = available
		}
		return sampler.DrawWithoutReplacementSkip(result, numCols, skip, draws)
	}

	candidates, weights := t.weightedPool(result)
	available := 0
	for _, w := range weights {
		if w > 0 {
			available++
		}
	}
	if draws > available {
		draws = available
	}
	return sampler.DrawWithoutReplacementWeighted(result, candidates, draws, weights)
}

// weightedPool returns the weighted candidates that are neither no-split
// variables nor already chosen.
func (t *TreeTrainer) weightedPool(chosen []int) ([]int, []float64) {
	excluded := make(map[int]bool, len(t.options.NoSplitVariables)+len(chosen))
	for _, v := range t.options.NoSplitVariables {
		excluded[v] = true
	}
	for _, v := range chosen {
		excluded[v] = true
	}
	var candidates []int
	var weights []float64
	for i, v := range t.options.SplitSelectVars {
		if excluded[v] {
			continue
		}
		candidates = append(candidates, v)
		weights = append(weights, t.options.SplitSelectWeights[i])
	}
	return candidates, weights
}

func countDistinct(indices []int, universe int) int {
	seen := make(map[int]struct{}, len(indices))
	for _, v := range indices {
		if v >= 0 && v < universe {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// repopulateLeafNodes regroups the held-out samples by the leaf they reach and
// prunes leaves left empty.
func (t *TreeTrainer) repopulateLeafNodes(tr *Tree, d data.Data, leafSamples []int) {
	newLeafSamples := make([][]int, tr.NumNodes())
	leaves := tr.FindLeafNodes(d, leafSamples)
	for i, s := range leafSamples {
		newLeafSamples[leaves[i]] = append(newLeafSamples[leaves[i]], s)
	}
	tr.SetLeafSamples(newLeafSamples)
	tr.PruneEmptyLeaves()
}
