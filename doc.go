// Package grf implements generalized random forests: honest tree ensembles
// that estimate conditional means, treatment effects, instrumental-variable
// effects and conditional quantiles, with grouped jackknife variance
// estimates for confidence intervals.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/grf/sklearn/ensemble"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(n, p, features)
//	    y := mat.NewDense(n, 1, outcomes)
//
//	    rf := ensemble.NewRegressionForest(ensemble.WithNumTrees(1000))
//	    if err := rf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//	    pred, variance, err := rf.PredictWithVariance(XTest)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(pred, variance)
//	}
//
// # Packages
//
//   - sklearn/ensemble: RegressionForest and CausalForest estimators
//   - forest: forest training, prediction and per-target builders
//   - tree: honest tree growing, leaf lookup and pruning
//   - relabeling: pseudo-outcomes for each statistical target
//   - splitting: split search rules
//   - prediction, prediction/collector: leaf statistics, aggregation and variance
//   - core/sampling: seeded subsampling and draws without replacement
//   - core/parallel, core/model: worker fan-out, estimator state and persistence
//   - data: dataset accessor and observations
//   - metrics: regression metrics and interval coverage
//   - pkg/errors, pkg/log: error types and structured logging
//   - config, cmd/grf: command-line configuration and tool
package grf
