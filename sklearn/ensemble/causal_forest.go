package ensemble

import (
	"math"

	"github.com/YuminosukeSato/grf/core/model"
	"github.com/YuminosukeSato/grf/forest"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const causalForestName = "CausalForest"

// CausalForest estimates the conditional average effect of a treatment w on
// an outcome y. Predictions are n×1 matrices of effects.
type CausalForest struct {
	forestModel
}

// NewCausalForest creates an unfitted causal forest.
func NewCausalForest(opts ...Option) *CausalForest {
	return &CausalForest{forestModel: newForestModel(causalForestName, opts)}
}

// Fit grows the forest on X with outcome y and treatment w, both n×1.
func (cf *CausalForest) Fit(X, y, w mat.Matrix) error {
	p := featureCount(X)
	for _, m := range []mat.Matrix{y, w} {
		if _, c := m.Dims(); c != 1 {
			return errors.NewDimensionError(causalForestName+".Fit", 1, c, 1)
		}
	}
	trainer := forest.CausalTrainer(p, p+1, cf.params.SplitRegularization, cf.params.Alpha)
	return cf.fit(X, trainer, 1, y, w)
}

func (cf *CausalForest) predictor(variance bool) *forest.ForestPredictor {
	return forest.InstrumentalPredictor(cf.params.NumThreads, variance)
}

// Predict returns the estimated treatment effect for each row of X.
func (cf *CausalForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	preds, err := cf.predict(X, cf.predictor(false), "Predict")
	if err != nil {
		return nil, err
	}
	values, _ := toMatrices(preds, 1, false)
	return values, nil
}

// PredictWithVariance returns treatment effects and their variance estimates.
func (cf *CausalForest) PredictWithVariance(X mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	if err := cf.requireVariance(); err != nil {
		return nil, nil, err
	}
	preds, err := cf.predict(X, cf.predictor(true), "PredictWithVariance")
	if err != nil {
		return nil, nil, err
	}
	values, variance := toMatrices(preds, 1, true)
	return values, variance, nil
}

// PredictOOB returns out-of-bag treatment effects for the training rows.
func (cf *CausalForest) PredictOOB() (mat.Matrix, error) {
	preds, err := cf.predictOOB(cf.predictor(false))
	if err != nil {
		return nil, err
	}
	values, _ := toMatrices(preds, 1, false)
	return values, nil
}

// AverageEffect returns the mean of the out-of-bag treatment effects over
// the training rows. Rows without an estimate are skipped.
func (cf *CausalForest) AverageEffect() (float64, error) {
	oob, err := cf.PredictOOB()
	if err != nil {
		return 0, err
	}
	n, _ := oob.Dims()
	effects := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if v := oob.At(i, 0); !math.IsNaN(v) {
			effects = append(effects, v)
		}
	}
	if len(effects) == 0 {
		return 0, errors.NewValueError(causalForestName+".AverageEffect", "no training row has an out-of-bag estimate")
	}
	return stat.Mean(effects, nil), nil
}

// Save writes the fitted forest to path.
func (cf *CausalForest) Save(path string) error {
	return model.SaveModel(cf, path)
}

// Load replaces cf with the forest stored at path.
func (cf *CausalForest) Load(path string) error {
	return model.LoadModel(cf, path)
}

// GobEncode implements gob.GobEncoder.
func (cf *CausalForest) GobEncode() ([]byte, error) { return cf.gobEncode() }

// GobDecode implements gob.GobDecoder.
func (cf *CausalForest) GobDecode(b []byte) error {
	cf.name = causalForestName
	return cf.gobDecode(b)
}
