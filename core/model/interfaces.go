// Package model holds the estimator contracts shared by the forest estimators,
// their fitted-state bookkeeping and gob persistence.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is a model that learns from a feature matrix and targets.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor returns one row of point estimates per row of X.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X, y mat.Matrix) (float64, error)
}

// VariancePredictor returns point estimates together with their estimated
// variance. Both matrices have the shape of Predict's result.
type VariancePredictor interface {
	PredictWithVariance(X mat.Matrix) (predictions, variance mat.Matrix, err error)
}

// OOBPredictor predicts each training row with the trees that did not see it.
type OOBPredictor interface {
	PredictOOB() (mat.Matrix, error)
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	Save(path string) error
	Load(path string) error
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// ForestEstimator is a fitted-forest model with variance and out-of-bag predictions.
type ForestEstimator interface {
	Regressor
	VariancePredictor
	OOBPredictor
	Persistable
	IsFitted() bool
}
