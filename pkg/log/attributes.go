package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RegressionForest".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict", "predict_oob".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TargetsKey  = "data.targets"
)

// Forest configuration and progress.
const (
	NumTreesKey       = "forest.trees"
	CIGroupSizeKey    = "forest.ci_group_size"
	SampleFractionKey = "forest.sample_fraction"
	HonestyKey        = "forest.honesty"
	MtryKey           = "forest.mtry"
	MinNodeSizeKey    = "forest.min_node_size"
	NumThreadsKey     = "forest.threads"
	GroupKey          = "forest.group"
	RandomSeedKey     = "config.random_seed"
)

// Performance and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	R2ScoreKey    = "metrics.r2_score"
	MSEKey        = "metrics.mse"
	PredsKey      = "preds.count"
	EmptyPredsKey = "preds.empty"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit        = "fit"
	OperationPredict    = "predict"
	OperationPredictOOB = "predict_oob"
	OperationScore      = "score"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorNoGoodGroups      = "NO_GOOD_GROUPS"
)
