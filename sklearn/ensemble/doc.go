// Package ensemble provides scikit-learn style estimators over generalized
// random forests.
//
// RegressionForest and CausalForest take gonum matrices, are configured with
// functional options, and add variance estimates and out-of-bag predictions
// to the usual Fit/Predict/Score surface:
//
//	cf := ensemble.NewCausalForest(ensemble.WithNumTrees(1000))
//	if err := cf.Fit(X, y, w); err != nil {
//	    log.Fatal(err)
//	}
//	tau, variance, err := cf.PredictWithVariance(XTest)
package ensemble
