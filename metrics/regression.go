// Package metrics scores forest predictions. Pairs whose prediction is NaN
// (samples without a contributing leaf) are skipped.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// pairs returns the defined (yTrue, yPred) pairs.
func pairs(op string, yTrue, yPred *mat.VecDense) (truth, pred []float64, err error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	truth = make([]float64, 0, n)
	pred = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		p := yPred.AtVec(i)
		if math.IsNaN(p) {
			continue
		}
		truth = append(truth, yTrue.AtVec(i))
		pred = append(pred, p)
	}
	if len(pred) == 0 {
		return nil, nil, errors.NewValueError(op, "every prediction is NaN")
	}
	return truth, pred, nil
}

// MSE is the mean squared error.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	truth, pred, err := pairs("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range truth {
		diff := truth[i] - pred[i]
		sum += diff * diff
	}
	return sum / float64(len(truth)), nil
}

// MSEMatrix is MSE over n×1 matrices.
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}
	return MSE(mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue)), mat.NewVecDense(rPred, mat.Col(nil, 0, yPred)))
}

// RMSE is the root mean squared error.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	truth, pred, err := pairs("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range truth {
		sum += math.Abs(truth[i] - pred[i])
	}
	return sum / float64(len(truth)), nil
}

// R2Score is the coefficient of determination.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	truth, pred, err := pairs("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	mean := stat.Mean(truth, nil)
	var tss, rss float64
	for i := range truth {
		tss += (truth[i] - mean) * (truth[i] - mean)
		rss += (truth[i] - pred[i]) * (truth[i] - pred[i])
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// CoverageRate is the fraction of samples whose true value lies within
// z standard errors of the prediction. Samples without a variance are skipped.
func CoverageRate(yTrue, yPred, variance *mat.VecDense, z float64) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("CoverageRate", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("CoverageRate", n, yPred.Len(), 0)
	}
	if variance.Len() != n {
		return 0, errors.NewDimensionError("CoverageRate", n, variance.Len(), 0)
	}

	covered, total := 0, 0
	for i := 0; i < n; i++ {
		p, v := yPred.AtVec(i), variance.AtVec(i)
		if math.IsNaN(p) || math.IsNaN(v) {
			continue
		}
		total++
		if math.Abs(yTrue.AtVec(i)-p) <= z*math.Sqrt(v) {
			covered++
		}
	}
	if total == 0 {
		return 0, errors.NewValueError("CoverageRate", "no sample has a variance estimate")
	}
	return float64(covered) / float64(total), nil
}
