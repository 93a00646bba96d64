package forest

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/pkg/log"
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/splitting"
	"github.com/YuminosukeSato/grf/tree"
	"gonum.org/v1/gonum/mat"
)

// stepData has two uniform features and, in column 2, an outcome that jumps
// by 3 at x0 = 0.5.
func stepData(t *testing.T, n int, seed uint64) *data.DenseData {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 3))
	m := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		x0, x1 := rng.Float64(), rng.Float64()
		y := rng.NormFloat64() * 0.2
		if x0 > 0.5 {
			y += 3
		}
		m.SetRow(i, []float64{x0, x1, y})
	}
	d, err := data.NewDenseData(m)
	if err != nil {
		t.Fatalf("NewDenseData: %v", err)
	}
	return d
}

func testOptions(numTrees, ciGroupSize int) ForestOptions {
	return ForestOptions{
		NumTrees:       numTrees,
		CIGroupSize:    ciGroupSize,
		SampleFraction: 0.5,
		NumThreads:     2,
		Seed:           42,
		Tree: tree.TreeOptions{
			Honesty:     true,
			Mtry:        2,
			MinNodeSize: 5,
		},
	}
}

func TestRegressionForestLearnsStep(t *testing.T) {
	d := stepData(t, 300, 1)
	f, err := RegressionTrainer([]int{2}, 0.05).Train(d, testOptions(40, 1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if f.NumTrees() != 40 {
		t.Fatalf("NumTrees = %d, want 40", f.NumTrees())
	}

	test, err := data.NewDenseDataFromRows([][]float64{{0.1, 0.5, 0}, {0.9, 0.5, 0}})
	if err != nil {
		t.Fatal(err)
	}
	preds, err := RegressionPredictor(2, 1, false).Predict(f, test)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(preds[0].Predictions[0]) > 1 || math.Abs(preds[1].Predictions[0]-3) > 1 {
		t.Errorf("predictions %v, %v too far from 0 and 3", preds[0].Predictions, preds[1].Predictions)
	}
}

func TestForestOOBExclusion(t *testing.T) {
	d := stepData(t, 120, 2)
	opts := testOptions(30, 1)
	opts.Tree.Honesty = false
	f, err := RegressionTrainer([]int{2}, 0.05).Train(d, opts)
	if err != nil {
		t.Fatal(err)
	}

	for ti, tr := range f.Trees() {
		oob := make(map[int]bool)
		for _, s := range tr.OOBSamples() {
			oob[s] = true
		}
		for _, leaf := range tr.LeafSamples() {
			for _, s := range leaf {
				if oob[s] {
					t.Fatalf("tree %d: training sample %d listed as out-of-bag", ti, s)
				}
			}
		}
	}

	preds, err := RegressionPredictor(1, 1, false).PredictOOB(f, d)
	if err != nil {
		t.Fatalf("PredictOOB: %v", err)
	}

	for s := 0; s < d.NumRows(); s++ {
		sum, count := 0.0, 0
		for _, tr := range f.Trees() {
			isOOB := false
			for _, o := range tr.OOBSamples() {
				if o == s {
					isOOB = true
					break
				}
			}
			if !isOOB {
				continue
			}
			sum += tr.PredictionValues().Get(tr.FindLeafNode(d, s), 0)[0]
			count++
		}
		if count == 0 {
			if !preds[s].IsEmpty() {
				t.Errorf("sample %d is in every tree but has prediction %v", s, preds[s].Predictions)
			}
			continue
		}
		if want := sum / float64(count); math.Abs(preds[s].Predictions[0]-want) > 1e-9 {
			t.Errorf("sample %d: OOB prediction %v, want %v", s, preds[s].Predictions[0], want)
		}
	}
}

func TestForestVarianceNonNegative(t *testing.T) {
	d := stepData(t, 200, 3)
	f, err := RegressionTrainer([]int{2}, 0.05).Train(d, testOptions(100, 2))
	if err != nil {
		t.Fatal(err)
	}

	preds, err := RegressionPredictor(2, 1, true).Predict(f, d)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i, p := range preds {
		if !p.ContainsVarianceEstimates() {
			t.Fatalf("sample %d: missing variance", i)
		}
		if v := p.VarianceEstimates[0]; v < 0 || math.IsNaN(v) {
			t.Errorf("sample %d: variance %v", i, v)
		}
	}

	oob, err := RegressionPredictor(2, 1, true).PredictOOB(f, d)
	if err != nil {
		t.Fatalf("PredictOOB: %v", err)
	}
	for i, p := range oob {
		if p.ContainsVarianceEstimates() && p.VarianceEstimates[0] < 0 {
			t.Errorf("sample %d: OOB variance %v", i, p.VarianceEstimates[0])
		}
	}
}

func TestForestDeterministicAcrossThreadCounts(t *testing.T) {
	d := stepData(t, 150, 4)
	trainer := RegressionTrainer([]int{2}, 0.05)

	var forests []*Forest
	for _, threads := range []int{1, 3, 8} {
		opts := testOptions(20, 2)
		opts.NumThreads = threads
		f, err := trainer.Train(d, opts)
		if err != nil {
			t.Fatalf("threads=%d: %v", threads, err)
		}
		forests = append(forests, f)
	}

	for i := 1; i < len(forests); i++ {
		for ti := range forests[0].Trees() {
			a, b := forests[0].Trees()[ti], forests[i].Trees()[ti]
			if !reflect.DeepEqual(a.SplitVars(), b.SplitVars()) ||
				!reflect.DeepEqual(a.SplitValues(), b.SplitValues()) ||
				!reflect.DeepEqual(a.LeafSamples(), b.LeafSamples()) ||
				!reflect.DeepEqual(a.OOBSamples(), b.OOBSamples()) {
				t.Fatalf("tree %d differs between thread counts", ti)
			}
		}
	}
}

func TestForestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ForestOptions)
	}{
		{"no trees", func(o *ForestOptions) { o.NumTrees = 0 }},
		{"trees not a multiple of group size", func(o *ForestOptions) { o.NumTrees = 5; o.CIGroupSize = 2 }},
		{"fraction above half with groups", func(o *ForestOptions) { o.SampleFraction = 0.7; o.CIGroupSize = 2 }},
		{"fraction zero", func(o *ForestOptions) { o.SampleFraction = 0 }},
		{"negative threads", func(o *ForestOptions) { o.NumThreads = -1 }},
		{"bad tree options", func(o *ForestOptions) { o.Tree.Mtry = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(10, 1)
			tt.modify(&opts)
			err := opts.Validate(3)
			var valErr *errors.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	if err := DefaultForestOptions().Validate(3); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestTrainRejectsEmptyData(t *testing.T) {
	empty := &data.DenseData{}
	_, err := RegressionTrainer([]int{0}, 0.05).Train(empty, testOptions(2, 1))
	if !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	d := stepData(t, 60, 5)
	f, err := RegressionTrainer([]int{2}, 0.05).Train(d, testOptions(4, 1))
	if err != nil {
		t.Fatal(err)
	}
	narrow, err := data.NewDenseDataFromRows([][]float64{{0.1, 0.2}})
	if err != nil {
		t.Fatal(err)
	}

	_, err = RegressionPredictor(1, 1, false).Predict(f, narrow)
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
	_, err = RegressionPredictor(1, 1, false).PredictOOB(f, narrow)
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError from PredictOOB, got %v", err)
	}
}

func TestCausalForestSeparatesEffects(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	const n = 600
	m := mat.NewDense(n, 4, nil)
	for i := 0; i < n; i++ {
		x0, x1 := rng.Float64(), rng.Float64()
		w := 0.0
		if rng.Float64() < 0.5 {
			w = 1
		}
		tau := 0.0
		if x0 > 0.5 {
			tau = 2
		}
		y := x1 + tau*w + rng.NormFloat64()*0.1
		m.SetRow(i, []float64{x0, x1, y, w})
	}
	d, err := data.NewDenseData(m)
	if err != nil {
		t.Fatal(err)
	}

	f, err := CausalTrainer(2, 3, 0, 0.05).Train(d, testOptions(60, 2))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	for _, tr := range f.Trees() {
		for node := 0; node < tr.NumNodes(); node++ {
			if !tr.IsLeaf(node) && (tr.SplitVars()[node] == 2 || tr.SplitVars()[node] == 3) {
				t.Fatalf("observation column %d used for splitting", tr.SplitVars()[node])
			}
		}
	}

	test, err := data.NewDenseDataFromRows([][]float64{
		{0.2, 0.5, 0, 0}, {0.3, 0.5, 0, 0}, {0.7, 0.5, 0, 0}, {0.8, 0.5, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	preds, err := InstrumentalPredictor(2, true).Predict(f, test)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	low := (preds[0].Predictions[0] + preds[1].Predictions[0]) / 2
	high := (preds[2].Predictions[0] + preds[3].Predictions[0]) / 2
	if high-low < 0.5 {
		t.Errorf("effects not separated: low %v, high %v", low, high)
	}
	for i, p := range preds {
		if p.VarianceEstimates[0] < 0 {
			t.Errorf("sample %d: negative variance", i)
		}
	}
}

func TestQuantileForest(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 1))
	const n = 400
	m := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64()
		m.SetRow(i, []float64{x, 10*x + rng.NormFloat64()})
	}
	d, err := data.NewDenseData(m)
	if err != nil {
		t.Fatal(err)
	}

	quantiles := []float64{0.1, 0.5, 0.9}
	opts := testOptions(40, 1)
	opts.Tree.Mtry = 1
	f, err := QuantileTrainer(1, quantiles, 0.05).Train(d, opts)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	test, err := data.NewDenseDataFromRows([][]float64{{0.1, 0}, {0.9, 0}})
	if err != nil {
		t.Fatal(err)
	}
	preds, err := QuantilePredictor(2, quantiles).Predict(f, test)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range preds {
		if p.Size() != 3 || p.Predictions[0] > p.Predictions[1] || p.Predictions[1] > p.Predictions[2] {
			t.Errorf("sample %d: quantiles not ordered: %v", i, p.Predictions)
		}
	}
	if preds[1].Predictions[1]-preds[0].Predictions[1] < 4 {
		t.Errorf("medians %v and %v should differ by about 8", preds[0].Predictions[1], preds[1].Predictions[1])
	}
}

func TestForestGobRoundTrip(t *testing.T) {
	d := stepData(t, 80, 6)
	f, err := RegressionTrainer([]int{2}, 0.05).Train(d, testOptions(10, 2))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded Forest
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	p := RegressionPredictor(1, 1, true)
	want, err := p.Predict(f, d)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Predict(&decoded, d)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("decoded forest predicts differently")
	}
	if decoded.CIGroupSize() != 2 || decoded.Observations().NumSamples() != 80 {
		t.Errorf("decoded metadata: ci %d, samples %d", decoded.CIGroupSize(), decoded.Observations().NumSamples())
	}
}

type panickingRelabeling struct{}

func (panickingRelabeling) Relabel([]int, *data.Observations) map[int][]float64 {
	panic("relabel exploded")
}

func TestTrainRecoversWorkerPanic(t *testing.T) {
	d := stepData(t, 40, 7)
	trainer := NewForestTrainer(panickingRelabeling{}, splitting.NewRegressionSplittingRuleFactory(0.05),
		prediction.NewRegressionPredictionStrategy(1), []int{2}, -1, -1)

	_, err := trainer.Train(d, testOptions(4, 1))
	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if panicErr.PanicValue != "relabel exploded" {
		t.Errorf("panic value = %v", panicErr.PanicValue)
	}
}

func TestTrainLogs(t *testing.T) {
	previous := log.Provider()
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetProvider(provider)
	t.Cleanup(func() { log.SetProvider(previous) })

	d := stepData(t, 40, 8)
	if _, err := RegressionTrainer([]int{2}, 0.05).Train(d, testOptions(4, 2)); err != nil {
		t.Fatal(err)
	}

	logger := provider.Logger()
	if !logger.ContainsMessage("Training forest") || !logger.ContainsMessage("Forest trained") {
		t.Error("expected start and finish records")
	}
	if !logger.ContainsField(log.NumTreesKey, float64(4)) {
		t.Error("expected the tree count to be logged")
	}
	if !logger.ContainsMessage("Tree group trained") {
		t.Error("expected per-group debug records")
	}
}
