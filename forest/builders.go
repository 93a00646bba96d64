package forest

import (
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/relabeling"
	"github.com/YuminosukeSato/grf/splitting"
)

// RegressionTrainer grows forests estimating the conditional mean of the
// outcome columns.
func RegressionTrainer(outcomeCols []int, alpha float64) *ForestTrainer {
	return NewForestTrainer(
		relabeling.NewNoopRelabelingStrategy(),
		splitting.NewRegressionSplittingRuleFactory(alpha),
		prediction.NewRegressionPredictionStrategy(len(outcomeCols)),
		outcomeCols, -1, -1,
	)
}

// InstrumentalTrainer grows forests estimating a local instrumental-variable effect.
func InstrumentalTrainer(outcomeCol, treatmentCol, instrumentCol int, splitRegularization, alpha float64) *ForestTrainer {
	return NewForestTrainer(
		relabeling.NewInstrumentalRelabelingStrategy(splitRegularization),
		splitting.NewRegressionSplittingRuleFactory(alpha),
		prediction.NewInstrumentalPredictionStrategy(),
		[]int{outcomeCol}, treatmentCol, instrumentCol,
	)
}

// CausalTrainer grows forests estimating a conditional average treatment
// effect: an instrumental forest whose instrument is the treatment.
func CausalTrainer(outcomeCol, treatmentCol int, splitRegularization, alpha float64) *ForestTrainer {
	return InstrumentalTrainer(outcomeCol, treatmentCol, treatmentCol, splitRegularization, alpha)
}

// QuantileTrainer grows forests for conditional quantiles. Leaves keep their
// samples and no statistics are precomputed.
func QuantileTrainer(outcomeCol int, quantiles []float64, alpha float64) *ForestTrainer {
	r := relabeling.NewQuantileRelabelingStrategy(quantiles)
	return NewForestTrainer(
		r,
		splitting.NewProbabilitySplittingRuleFactory(r.NumClasses(), alpha),
		nil,
		[]int{outcomeCol}, -1, -1,
	)
}

// RegressionPredictor predicts with forests from RegressionTrainer.
func RegressionPredictor(numThreads, outcomeWidth int, estimateVariance bool) *ForestPredictor {
	return NewOptimizedForestPredictor(prediction.NewRegressionPredictionStrategy(outcomeWidth), numThreads, estimateVariance)
}

// InstrumentalPredictor predicts with forests from InstrumentalTrainer or CausalTrainer.
func InstrumentalPredictor(numThreads int, estimateVariance bool) *ForestPredictor {
	return NewOptimizedForestPredictor(prediction.NewInstrumentalPredictionStrategy(), numThreads, estimateVariance)
}

// QuantilePredictor predicts with forests from QuantileTrainer.
func QuantilePredictor(numThreads int, quantiles []float64) *ForestPredictor {
	return NewDefaultForestPredictor(prediction.NewQuantilePredictionStrategy(quantiles), numThreads)
}
