package prediction

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func scalarValues(vs ...float64) *PredictionValues {
	values := make([][][]float64, len(vs))
	for i, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		values[i] = [][]float64{{v}}
	}
	return NewPredictionValues(values, len(vs), 1)
}

func expectedDebias(vb, gn float64, groups int) float64 {
	m := vb - gn
	se := math.Max(vb, gn) * math.Sqrt(2/float64(groups))
	r := m / se
	phi := math.Exp(-r*r/2) / math.Sqrt(2*math.Pi)
	Phi := 0.5 * math.Erfc(-r/math.Sqrt2)
	return m + se*phi/Phi
}

func TestPredictionValuesShape(t *testing.T) {
	averages := []float64{1, 2.8, 33, 4, -5, -7, 54, 23, -8.7, -0.6}
	pv := scalarValues(averages...)

	if pv.NumNodes() != 10 {
		t.Errorf("NumNodes = %d, want 10", pv.NumNodes())
	}
	if pv.NumTypes() != 1 {
		t.Errorf("NumTypes = %d, want 1", pv.NumTypes())
	}
	for i, want := range averages {
		if got := pv.Get(i, 0)[0]; got != want {
			t.Errorf("node %d: got %v, want %v", i, got, want)
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pv); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded PredictionValues
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.NumNodes() != 10 || decoded.NumTypes() != 1 || decoded.Get(6, 0)[0] != 54 {
		t.Errorf("decoded values differ: %d nodes, %d types", decoded.NumNodes(), decoded.NumTypes())
	}
}

func TestPredictionValuesEmpty(t *testing.T) {
	pv := NewPredictionValues(nil, 3, 1)
	for i := 0; i < 3; i++ {
		if !pv.Empty(i) {
			t.Errorf("node %d should be empty", i)
		}
	}
}

func TestNaNPrediction(t *testing.T) {
	p := NaNPrediction(2)
	if p.Size() != 2 || !p.IsEmpty() || p.ContainsVarianceEstimates() {
		t.Errorf("unexpected placeholder %+v", p)
	}
	if NewPrediction([]float64{1, math.NaN()}).IsEmpty() {
		t.Error("a partially defined prediction is not empty")
	}
}

func newObservations(t *testing.T, byType map[data.ObservationType][]float64, width int) *data.Observations {
	t.Helper()
	dense := make(map[data.ObservationType]*mat.Dense, len(byType))
	n := 0
	for typ, v := range byType {
		w := 1
		if typ == data.Outcome {
			w = width
		}
		n = len(v) / w
		dense[typ] = mat.NewDense(n, w, v)
	}
	obs, err := data.NewObservations(dense, n)
	if err != nil {
		t.Fatalf("NewObservations: %v", err)
	}
	return obs
}

func TestRegressionPrecompute(t *testing.T) {
	obs := newObservations(t, map[data.ObservationType][]float64{
		data.Outcome: {1, 10, 3, 30, 5, 50},
	}, 2)
	s := NewRegressionPredictionStrategy(2)

	pv := s.PrecomputePredictionValues([][]int{{0, 1}, {}, {2}}, obs)
	if pv.NumNodes() != 3 || pv.NumTypes() != s.PredictionValueLength() {
		t.Fatalf("unexpected shape %d x %d", pv.NumNodes(), pv.NumTypes())
	}
	if got := pv.Get(0, RegressionOutcome); got[0] != 2 || got[1] != 20 {
		t.Errorf("leaf 0 average = %v, want [2 20]", got)
	}
	if !pv.Empty(1) {
		t.Error("empty leaf must stay empty")
	}
	if got := pv.Get(2, RegressionOutcome); got[0] != 5 || got[1] != 50 {
		t.Errorf("leaf 2 average = %v, want [5 50]", got)
	}

	pred := s.Predict([][]float64{{2, 20}})
	if len(pred) != s.PredictionLength() || pred[0] != 2 || pred[1] != 20 {
		t.Errorf("Predict = %v", pred)
	}
}

func TestRegressionComputeVariance(t *testing.T) {
	s := NewRegressionPredictionStrategy(1)
	leaves := scalarValues(0, 2, 1, 3)

	got, err := s.ComputeVariance([][]float64{{1.5}}, leaves, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// var_between = 0.25, var_total = 1.25, group_noise = 1
	want := expectedDebias(0.25, 1, 2)
	if math.Abs(got[0]-want) > 1e-12 {
		t.Errorf("variance = %v, want %v", got[0], want)
	}
}

func TestRegressionComputeVarianceSkipsIncompleteGroups(t *testing.T) {
	s := NewRegressionPredictionStrategy(1)
	complete := scalarValues(0, 2, 1, 3)
	withGap := scalarValues(0, 2, 1, 3, 100, math.NaN())

	a, err := s.ComputeVariance([][]float64{{1.5}}, complete, 2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.ComputeVariance([][]float64{{1.5}}, withGap, 2)
	if err != nil {
		t.Fatal(err)
	}
	if a[0] != b[0] {
		t.Errorf("the incomplete group must be ignored: %v vs %v", a[0], b[0])
	}
}

func TestComputeVarianceErrors(t *testing.T) {
	s := NewRegressionPredictionStrategy(1)

	_, err := s.ComputeVariance([][]float64{{0}}, scalarValues(1, math.NaN(), math.NaN(), 2), 2)
	if !errors.Is(err, errors.ErrNoGoodGroups) {
		t.Errorf("expected ErrNoGoodGroups, got %v", err)
	}

	_, err = s.ComputeVariance([][]float64{{0}}, scalarValues(1, 2), 1)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for ci_group_size 1, got %v", err)
	}
}

func TestObjectiveBayesDebiaser(t *testing.T) {
	var d ObjectiveBayesDebiaser

	tests := []struct {
		name   string
		vb, gn float64
		groups int
	}{
		{"signal dominates", 4, 0.1, 50},
		{"noise dominates", 0.1, 4, 3},
		{"balanced", 1, 1, 10},
		{"extreme noise", 1e-8, 1e3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Debias(tt.vb, tt.gn, tt.groups)
			if got < 0 || math.IsNaN(got) {
				t.Fatalf("Debias(%v, %v, %d) = %v, want non-negative", tt.vb, tt.gn, tt.groups, got)
			}
		})
	}

	if got := d.Debias(0, 0, 5); got != 0 {
		t.Errorf("zero input: got %v", got)
	}
	if got, want := d.Debias(1, 0.5, 4), expectedDebias(1, 0.5, 4); math.Abs(got-want) > 1e-12 {
		t.Errorf("Debias(1, 0.5, 4) = %v, want %v", got, want)
	}
	// with a tiny standard error the correction vanishes
	if got := d.Debias(10, 1e-9, 1e6); math.Abs(got-10) > 1e-6 {
		t.Errorf("Debias should approach the naive estimate, got %v", got)
	}
}

func instrumentalObservations(t *testing.T, y, w, z []float64) *data.Observations {
	return newObservations(t, map[data.ObservationType][]float64{
		data.Outcome: y, data.Treatment: w, data.Instrument: z,
	}, 1)
}

func TestInstrumentalPredictsLinearEffect(t *testing.T) {
	// y = 1 + 2w, with the treatment as its own instrument
	w := []float64{0, 1, 2, 3, 0, 1, 2, 3}
	y := make([]float64, len(w))
	for i, v := range w {
		y[i] = 1 + 2*v
	}
	obs := instrumentalObservations(t, y, w, w)
	s := NewInstrumentalPredictionStrategy()

	pv := s.PrecomputePredictionValues([][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}, obs)
	if pv.NumTypes() != 5 {
		t.Fatalf("NumTypes = %d, want 5", pv.NumTypes())
	}

	got := s.Predict(pv.GetValues(0))
	if len(got) != s.PredictionLength() || math.Abs(got[0]-2) > 1e-12 {
		t.Errorf("Predict = %v, want [2]", got)
	}
}

func TestInstrumentalComputeVariance(t *testing.T) {
	y := []float64{1, 4, 2, 7, 3, 3, 6, 9}
	w := []float64{0, 1, 0, 1, 1, 0, 1, 1}
	z := []float64{0, 1, 1, 1, 0, 0, 1, 0}
	obs := instrumentalObservations(t, y, w, z)
	s := NewInstrumentalPredictionStrategy()

	// four trees, each a leaf of four samples
	leaves := [][]int{{0, 1, 2, 3}, {2, 3, 4, 5}, {4, 5, 6, 7}, {0, 1, 6, 7}}
	perTree := s.PrecomputePredictionValues(leaves, obs)

	average := make([][]float64, 5)
	for typ := range average {
		sum := 0.0
		for tree := 0; tree < 4; tree++ {
			sum += perTree.Get(tree, typ)[0]
		}
		average[typ] = []float64{sum / 4}
	}

	got, err := s.ComputeVariance(average, perTree, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] < 0 || math.IsNaN(got[0]) {
		t.Errorf("variance = %v, want one non-negative value", got)
	}
}

func TestQuantilePrediction(t *testing.T) {
	obs := newObservations(t, map[data.ObservationType][]float64{
		data.Outcome: {5, 1, 4, 2, 3},
	}, 1)
	s := NewQuantilePredictionStrategy([]float64{0.1, 0.5, 0.9})

	equal := map[int]float64{0: 1, 1: 1, 2: 1, 3: 1, 4: 1}
	got := s.Predict(0, equal, obs)
	want := []float64{1, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("quantile %d = %v, want %v", i, got[i], want[i])
		}
	}

	skewed := map[int]float64{0: 8, 1: 1, 3: 1}
	if got := s.Predict(0, skewed, obs); got[1] != 5 {
		t.Errorf("weighted median = %v, want 5", got[1])
	}

	if got := s.Predict(0, map[int]float64{}, obs); !math.IsNaN(got[0]) {
		t.Errorf("no neighbours should give NaN, got %v", got)
	}
}
