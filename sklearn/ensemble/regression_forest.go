package ensemble

import (
	"github.com/YuminosukeSato/grf/core/model"
	"github.com/YuminosukeSato/grf/forest"
	"github.com/YuminosukeSato/grf/metrics"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const regressionForestName = "RegressionForest"

// RegressionForest estimates the conditional mean of one or more targets.
//
// Example:
//
//	rf := ensemble.NewRegressionForest(
//	    ensemble.WithNumTrees(500),
//	    ensemble.WithSeed(7),
//	)
//	if err := rf.Fit(X, y); err != nil {
//	    return err
//	}
//	preds, variance, err := rf.PredictWithVariance(XTest)
type RegressionForest struct {
	forestModel
}

var _ model.ForestEstimator = (*RegressionForest)(nil)

// NewRegressionForest creates an unfitted regression forest.
func NewRegressionForest(opts ...Option) *RegressionForest {
	return &RegressionForest{forestModel: newForestModel(regressionForestName, opts)}
}

// Fit grows the forest on the rows of X with targets y (n×k).
func (rf *RegressionForest) Fit(X, y mat.Matrix) error {
	p := featureCount(X)
	_, k := y.Dims()
	if k == 0 {
		return errors.NewModelError(regressionForestName+".Fit", "empty targets", errors.ErrEmptyData)
	}
	outcomeCols := make([]int, k)
	for j := range outcomeCols {
		outcomeCols[j] = p + j
	}
	return rf.fit(X, forest.RegressionTrainer(outcomeCols, rf.params.Alpha), k, y)
}

func (rf *RegressionForest) predictor(variance bool) *forest.ForestPredictor {
	_, _, k := rf.state.GetDimensions()
	return forest.RegressionPredictor(rf.params.NumThreads, k, variance)
}

// Predict returns an n×k matrix of conditional means. Rows whose sample
// reached no populated leaf are NaN.
func (rf *RegressionForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	preds, err := rf.predict(X, rf.predictor(false), "Predict")
	if err != nil {
		return nil, err
	}
	values, _ := toMatrices(preds, rf.targets(), false)
	return values, nil
}

// PredictWithVariance returns conditional means and their jackknife variance
// estimates. It requires a forest grown with a CI group size above 1.
func (rf *RegressionForest) PredictWithVariance(X mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	if err := rf.requireVariance(); err != nil {
		return nil, nil, err
	}
	preds, err := rf.predict(X, rf.predictor(true), "PredictWithVariance")
	if err != nil {
		return nil, nil, err
	}
	values, variance := toMatrices(preds, rf.targets(), true)
	return values, variance, nil
}

// PredictOOB returns out-of-bag predictions for the training rows.
func (rf *RegressionForest) PredictOOB() (mat.Matrix, error) {
	preds, err := rf.predictOOB(rf.predictor(false))
	if err != nil {
		return nil, err
	}
	values, _ := toMatrices(preds, rf.targets(), false)
	return values, nil
}

// Score returns R^2 averaged over the target columns.
func (rf *RegressionForest) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return meanR2(y, pred)
}

// OOBError returns the out-of-bag mean squared error averaged over the target columns.
func (rf *RegressionForest) OOBError() (float64, error) {
	pred, err := rf.PredictOOB()
	if err != nil {
		return 0, err
	}
	k := rf.targets()
	truth := rf.trainingTargets(0, k)
	var sum float64
	for j := 0; j < k; j++ {
		mse, err := metrics.MSEMatrix(columnOf(truth, j), columnOf(pred, j))
		if err != nil {
			return 0, errors.Wrapf(err, "OOB error for target %d", j)
		}
		sum += mse
	}
	return sum / float64(k), nil
}

// Save writes the fitted forest to path.
func (rf *RegressionForest) Save(path string) error {
	return model.SaveModel(rf, path)
}

// Load replaces rf with the forest stored at path.
func (rf *RegressionForest) Load(path string) error {
	return model.LoadModel(rf, path)
}

// GobEncode implements gob.GobEncoder.
func (rf *RegressionForest) GobEncode() ([]byte, error) { return rf.gobEncode() }

// GobDecode implements gob.GobDecoder.
func (rf *RegressionForest) GobDecode(b []byte) error {
	rf.name = regressionForestName
	return rf.gobDecode(b)
}

func (rf *RegressionForest) targets() int {
	_, _, k := rf.state.GetDimensions()
	return k
}

func featureCount(X mat.Matrix) int {
	_, p := X.Dims()
	return p
}

func columnOf(m mat.Matrix, j int) *mat.Dense {
	r, _ := m.Dims()
	return mat.NewDense(r, 1, mat.Col(nil, j, m))
}

func meanR2(y, pred mat.Matrix) (float64, error) {
	ry, k := y.Dims()
	rp, kp := pred.Dims()
	if ry != rp {
		return 0, errors.NewDimensionError("Score", ry, rp, 0)
	}
	if k != kp {
		return 0, errors.NewDimensionError("Score", kp, k, 1)
	}
	var sum float64
	for j := 0; j < k; j++ {
		r2, err := metrics.R2Score(mat.NewVecDense(ry, mat.Col(nil, j, y)), mat.NewVecDense(rp, mat.Col(nil, j, pred)))
		if err != nil {
			return 0, err
		}
		sum += r2
	}
	return sum / float64(k), nil
}
