package tree

import (
	"bytes"
	"encoding/gob"
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"

	"github.com/YuminosukeSato/grf/core/sampling"
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/relabeling"
	"github.com/YuminosukeSato/grf/splitting"
	"gonum.org/v1/gonum/mat"
)

var tenOutcomes = []float64{-9.99984, -7.36924, 5.11211, -0.826997, 0.655345, -5.62082, -9.05911, 3.57729, 3.58593, 8.69386}

// fixture returns a dataset whose last column is the outcome.
func fixture(t *testing.T, n, features int, seed uint64) (data.Data, *data.Observations) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 1))
	m := mat.NewDense(n, features+1, nil)
	for i := 0; i < n; i++ {
		y := 0.0
		for j := 0; j < features; j++ {
			x := rng.Float64()
			m.Set(i, j, x)
			if j == 0 && x > 0.5 {
				y += 3
			}
		}
		m.Set(i, features, y+rng.NormFloat64()*0.1)
	}
	return withOutcome(t, m, features)
}

func withOutcome(t *testing.T, m *mat.Dense, outcomeCol int) (data.Data, *data.Observations) {
	t.Helper()
	d, err := data.NewDenseData(m)
	if err != nil {
		t.Fatalf("NewDenseData: %v", err)
	}
	obs, err := data.ObservationsFromData(d, []int{outcomeCol}, -1, -1)
	if err != nil {
		t.Fatalf("ObservationsFromData: %v", err)
	}
	return d, obs
}

func regressionTrainer(opts TreeOptions) *TreeTrainer {
	return NewTreeTrainer(
		relabeling.NewNoopRelabelingStrategy(),
		splitting.NewRegressionSplittingRuleFactory(0.05),
		prediction.NewRegressionPredictionStrategy(1),
		opts,
	)
}

func allRows(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// reachableLeaves walks the tree from the root.
func reachableLeaves(tr *Tree) []int {
	var leaves []int
	stack := []int{tr.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tr.IsLeaf(node) {
			leaves = append(leaves, node)
			continue
		}
		stack = append(stack, tr.ChildNodes()[0][node], tr.ChildNodes()[1][node])
	}
	return leaves
}

func TestTrainMinNodeSizeGivesSingleLeaf(t *testing.T) {
	m := mat.NewDense(10, 2, nil)
	for i, y := range tenOutcomes {
		m.Set(i, 0, float64(i))
		m.Set(i, 1, y)
	}
	d, obs := withOutcome(t, m, 1)

	opts := TreeOptions{Mtry: 1, MinNodeSize: 10, NoSplitVariables: []int{1}}
	tr, err := regressionTrainer(opts).Train(d, obs, sampling.NewRandomSampler(1), allRows(10))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if tr.NumNodes() != 1 {
		t.Fatalf("expected a single node, got %d", tr.NumNodes())
	}
	if !tr.IsLeaf(0) || tr.SplitValues()[0] != LeafSplitValue {
		t.Error("the root must be a leaf with split value -1")
	}
	if got := sampling.SortedCopy(tr.LeafSamples()[0]); !reflect.DeepEqual(got, allRows(10)) {
		t.Errorf("root leaf samples = %v", got)
	}
	if tr.PredictionValues() == nil || tr.PredictionValues().Empty(0) {
		t.Error("leaf statistics must be precomputed")
	}
}

func TestTrainPartitionInvariant(t *testing.T) {
	d, obs := fixture(t, 200, 3, 7)
	opts := TreeOptions{Mtry: 2, MinNodeSize: 3, NoSplitVariables: []int{3}}

	tr, err := regressionTrainer(opts).Train(d, obs, sampling.NewRandomSampler(3), allRows(200))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if tr.NumNodes() < 3 {
		t.Fatalf("expected the tree to split, got %d nodes", tr.NumNodes())
	}

	var collected []int
	for _, leaf := range reachableLeaves(tr) {
		for _, s := range tr.LeafSamples()[leaf] {
			collected = append(collected, s)
			if got := tr.FindLeafNode(d, s); got != leaf {
				t.Errorf("sample %d stored in leaf %d but routes to %d", s, leaf, got)
			}
		}
	}
	sort.Ints(collected)
	if !reflect.DeepEqual(collected, allRows(200)) {
		t.Errorf("leaves do not partition the samples exactly once (%d collected)", len(collected))
	}

	for node := 0; node < tr.NumNodes(); node++ {
		if !tr.IsLeaf(node) && len(tr.LeafSamples()[node]) != 0 {
			t.Errorf("internal node %d still holds samples", node)
		}
		if tr.IsLeaf(node) && tr.SplitValues()[node] != LeafSplitValue {
			t.Errorf("leaf %d has split value %v", node, tr.SplitValues()[node])
		}
	}
}

func TestTrainPureNodeIsLeaf(t *testing.T) {
	m := mat.NewDense(20, 2, nil)
	for i := 0; i < 20; i++ {
		m.Set(i, 0, float64(i))
		m.Set(i, 1, 4.2)
	}
	d, obs := withOutcome(t, m, 1)

	opts := TreeOptions{Mtry: 1, MinNodeSize: 1, NoSplitVariables: []int{1}}
	tr, err := regressionTrainer(opts).Train(d, obs, sampling.NewRandomSampler(5), allRows(20))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if tr.NumNodes() != 1 || tr.SplitValues()[0] != LeafSplitValue {
		t.Errorf("a pure root must be a leaf, got %d nodes", tr.NumNodes())
	}
}

func TestTrainHonestyDisjointness(t *testing.T) {
	d, obs := fixture(t, 120, 2, 11)
	opts := TreeOptions{Honesty: true, Mtry: 2, MinNodeSize: 2, NoSplitVariables: []int{2}}
	const seed = 99

	tr, err := regressionTrainer(opts).Train(d, obs, sampling.NewRandomSampler(seed), allRows(120))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	// The trainer's first draw is the honesty split.
	splitHalf, leafHalf := sampling.NewRandomSampler(seed).Subsample(allRows(120), 0.5)
	inSplit := make(map[int]bool, len(splitHalf))
	for _, s := range splitHalf {
		inSplit[s] = true
	}
	inLeaf := make(map[int]bool, len(leafHalf))
	for _, s := range leafHalf {
		inLeaf[s] = true
	}

	total := 0
	for _, leaf := range reachableLeaves(tr) {
		samples := tr.LeafSamples()[leaf]
		if len(samples) == 0 {
			t.Errorf("reachable leaf %d is empty after pruning", leaf)
		}
		for _, s := range samples {
			total++
			if inSplit[s] {
				t.Errorf("split sample %d populates leaf %d", s, leaf)
			}
			if !inLeaf[s] {
				t.Errorf("sample %d was not held out", s)
			}
			if got := tr.FindLeafNode(d, s); got != leaf {
				t.Errorf("sample %d stored in leaf %d but routes to %d", s, leaf, got)
			}
		}
	}
	if total != len(leafHalf) {
		t.Errorf("leaves hold %d samples, want %d", total, len(leafHalf))
	}
}

func TestTrainReproducible(t *testing.T) {
	d, obs := fixture(t, 150, 4, 2)
	opts := TreeOptions{Honesty: true, Mtry: 3, MinNodeSize: 4, NoSplitVariables: []int{4}}
	trainer := regressionTrainer(opts)

	a, err := trainer.Train(d, obs, sampling.NewRandomSampler(17), allRows(150))
	if err != nil {
		t.Fatal(err)
	}
	b, err := trainer.Train(d, obs, sampling.NewRandomSampler(17), allRows(150))
	if err != nil {
		t.Fatal(err)
	}

	if a.RootNode() != b.RootNode() ||
		!reflect.DeepEqual(a.ChildNodes(), b.ChildNodes()) ||
		!reflect.DeepEqual(a.SplitVars(), b.SplitVars()) ||
		!reflect.DeepEqual(a.SplitValues(), b.SplitValues()) ||
		!reflect.DeepEqual(a.LeafSamples(), b.LeafSamples()) ||
		!reflect.DeepEqual(a.PredictionValues().AllValues(), b.PredictionValues().AllValues()) {
		t.Error("identical seeds must produce identical trees")
	}
}

func TestPruneEmptyLeaves(t *testing.T) {
	tests := []struct {
		name       string
		left       []int
		right      []int
		samples    [][]int
		wantRoot   int
		wantLeaves []int
	}{
		{
			// 0 -> (1, 2); 2 -> (3 empty, 4)
			name:       "promote non-empty grandchild",
			left:       []int{1, 0, 3, 0, 0},
			right:      []int{2, 0, 4, 0, 0},
			samples:    [][]int{nil, {0, 1}, nil, nil, {2}},
			wantRoot:   0,
			wantLeaves: []int{1, 4},
		},
		{
			// 0 -> (1, 2); 2 -> (3 empty, 4 empty)
			name:       "both grandchildren empty",
			left:       []int{1, 0, 3, 0, 0},
			right:      []int{2, 0, 4, 0, 0},
			samples:    [][]int{nil, {0}, nil, nil, nil},
			wantRoot:   1,
			wantLeaves: []int{1},
		},
		{
			name:       "nothing to prune",
			left:       []int{1, 0, 0},
			right:      []int{2, 0, 0},
			samples:    [][]int{nil, {0}, {1}},
			wantRoot:   0,
			wantLeaves: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.left)
			tr := NewTree(0, [2][]int{tt.left, tt.right}, tt.samples, make([]int, n), make([]float64, n), nil, nil)
			tr.PruneEmptyLeaves()

			if tr.RootNode() != tt.wantRoot {
				t.Errorf("root = %d, want %d", tr.RootNode(), tt.wantRoot)
			}
			got := reachableLeaves(tr)
			sort.Ints(got)
			if !reflect.DeepEqual(got, tt.wantLeaves) {
				t.Errorf("reachable leaves = %v, want %v", got, tt.wantLeaves)
			}
			if tr.NumNodes() != n {
				t.Errorf("pruning must not renumber nodes")
			}
		})
	}
}

func TestTreeGobRoundTrip(t *testing.T) {
	d, obs := fixture(t, 60, 2, 4)
	opts := TreeOptions{Honesty: true, Mtry: 2, MinNodeSize: 3, NoSplitVariables: []int{2}}
	tr, err := regressionTrainer(opts).Train(d, obs, sampling.NewRandomSampler(8), allRows(60))
	if err != nil {
		t.Fatal(err)
	}
	tr.SetOOBSamples([]int{1, 2, 3})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tr); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded Tree
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for row := 0; row < 60; row++ {
		if tr.FindLeafNode(d, row) != decoded.FindLeafNode(d, row) {
			t.Fatalf("row %d routes differently after decoding", row)
		}
	}
	if !reflect.DeepEqual(decoded.OOBSamples(), []int{1, 2, 3}) {
		t.Errorf("OOB samples = %v", decoded.OOBSamples())
	}
	leaf := tr.FindLeafNode(d, 0)
	if got, want := decoded.PredictionValues().Get(leaf, 0), tr.PredictionValues().Get(leaf, 0); !reflect.DeepEqual(got, want) {
		t.Errorf("leaf values = %v, want %v", got, want)
	}
}

func TestTreeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    TreeOptions
		wantErr bool
	}{
		{"defaults", DefaultTreeOptions(), false},
		{"negative mtry", TreeOptions{Mtry: -1}, true},
		{"negative min node size", TreeOptions{MinNodeSize: -1}, true},
		{"weights without vars", TreeOptions{SplitSelectWeights: []float64{1}}, true},
		{"negative weight", TreeOptions{SplitSelectVars: []int{0}, SplitSelectWeights: []float64{-1}}, true},
		{"column out of range", TreeOptions{DeterministicVars: []int{5}}, true},
		{"deterministic and no-split", TreeOptions{DeterministicVars: []int{0}, NoSplitVariables: []int{0}}, true},
		{"every column excluded", TreeOptions{NoSplitVariables: []int{0, 1, 2}}, true},
		{"valid weighted", TreeOptions{Mtry: 2, SplitSelectVars: []int{0, 1}, SplitSelectWeights: []float64{1, 2}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate(3)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var valErr *errors.ValidationError
				var dimErr *errors.DimensionError
				if !errors.As(err, &valErr) && !errors.As(err, &dimErr) {
					t.Errorf("unexpected error type %T", err)
				}
			}
		})
	}
}

func TestSplitVariableSubset(t *testing.T) {
	t.Run("no-split variables are never drawn", func(t *testing.T) {
		trainer := regressionTrainer(TreeOptions{Mtry: 10, NoSplitVariables: []int{0, 3}})
		s := sampling.NewRandomSampler(1)
		for i := 0; i < 50; i++ {
			vars, err := trainer.splitVariableSubset(s, 6)
			if err != nil {
				t.Fatal(err)
			}
			if len(vars) < 1 || len(vars) > 4 {
				t.Fatalf("subset size %d outside [1, 4]", len(vars))
			}
			for _, v := range vars {
				if v == 0 || v == 3 {
					t.Fatalf("no-split variable %d drawn", v)
				}
			}
		}
	})

	t.Run("deterministic variables are always present", func(t *testing.T) {
		trainer := regressionTrainer(TreeOptions{Mtry: 2, DeterministicVars: []int{4}})
		s := sampling.NewRandomSampler(2)
		for i := 0; i < 50; i++ {
			vars, err := trainer.splitVariableSubset(s, 5)
			if err != nil {
				t.Fatal(err)
			}
			if vars[0] != 4 {
				t.Fatalf("deterministic variable missing from %v", vars)
			}
			seen := map[int]bool{}
			for _, v := range vars {
				if seen[v] {
					t.Fatalf("variable %d drawn twice in %v", v, vars)
				}
				seen[v] = true
			}
		}
	})

	t.Run("weighted draw saturates instead of failing", func(t *testing.T) {
		trainer := regressionTrainer(TreeOptions{
			Mtry:               8,
			SplitSelectVars:    []int{0, 1, 2},
			SplitSelectWeights: []float64{1, 0, 3},
		})
		s := sampling.NewRandomSampler(3)
		for i := 0; i < 50; i++ {
			vars, err := trainer.splitVariableSubset(s, 10)
			if err != nil {
				t.Fatalf("weighted draw must not fail: %v", err)
			}
			if len(vars) > 2 {
				t.Fatalf("only two candidates carry weight, got %v", vars)
			}
			for _, v := range vars {
				if v == 1 {
					t.Fatal("zero-weight variable drawn")
				}
			}
		}
	})
}
