package main

import (
	"github.com/YuminosukeSato/grf/config"
	"github.com/YuminosukeSato/grf/core/model"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/sklearn/ensemble"
	"gonum.org/v1/gonum/mat"
)

// modelFile is what train writes: the fitted estimator plus the column names
// needed to rebuild the feature matrix at prediction time.
type modelFile struct {
	Type       string
	Features   []string
	Outcome    string
	Treatment  string
	Regression *ensemble.RegressionForest
	Causal     *ensemble.CausalForest
}

func loadModelFile(path string) (*modelFile, error) {
	var mf modelFile
	if err := model.LoadModel(&mf, path); err != nil {
		return nil, err
	}
	if mf.estimator() == nil {
		return nil, errors.NewValueError("loadModelFile", "model file holds no forest")
	}
	return &mf, nil
}

func (mf *modelFile) save(path string) error {
	return model.SaveModel(mf, path)
}

// predictor is the part of the estimators predict needs.
type predictor interface {
	model.Predictor
	model.VariancePredictor
}

func (mf *modelFile) estimator() predictor {
	switch mf.Type {
	case config.ForestRegression:
		if mf.Regression != nil {
			return mf.Regression
		}
	case config.ForestCausal:
		if mf.Causal != nil {
			return mf.Causal
		}
	}
	return nil
}

// outputNames names the prediction columns.
func (mf *modelFile) outputNames() []string {
	if mf.Type == config.ForestCausal {
		return []string{"effect"}
	}
	return []string{mf.Outcome}
}

// predict returns the predictions and, if withVariance, their variance.
func (mf *modelFile) predict(X mat.Matrix, withVariance bool) (pred, variance mat.Matrix, err error) {
	est := mf.estimator()
	if withVariance {
		return est.PredictWithVariance(X)
	}
	pred, err = est.Predict(X)
	return pred, nil, err
}
