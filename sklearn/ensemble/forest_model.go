package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"time"

	"github.com/YuminosukeSato/grf/core/model"
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/forest"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/pkg/log"
	"github.com/YuminosukeSato/grf/prediction"
	"gonum.org/v1/gonum/mat"
)

// forestModel is the state shared by the estimators: the fitted forest and
// the training matrix it was grown on. The training matrix is X followed by
// the observation columns; prediction inputs are padded with zero columns in
// their place, which is safe because observation columns are never split on.
type forestModel struct {
	name   string
	params Params
	state  *model.StateManager
	forest *forest.Forest
	train  *mat.Dense
	// obsCols is the number of observation columns appended to X.
	obsCols int
}

func newForestModel(name string, opts []Option) forestModel {
	params := DefaultParams()
	for _, opt := range opts {
		opt(&params)
	}
	return forestModel{name: name, params: params, state: model.NewStateManager()}
}

func (m *forestModel) logger() log.Logger {
	return log.GetLoggerWithName("sklearn.ensemble").With(log.ModelNameKey, m.name)
}

// IsFitted returns whether Fit has completed.
func (m *forestModel) IsFitted() bool { return m.state.IsFitted() }

// Params returns the hyperparameters.
func (m *forestModel) Params() Params { return m.params }

// Forest returns the fitted forest, or nil before Fit.
func (m *forestModel) Forest() *forest.Forest { return m.forest }

// augment returns X followed by the columns of extra and then zero columns up
// to pad extra columns in total.
func augment(X mat.Matrix, pad int, extra ...mat.Matrix) *mat.Dense {
	n, p := X.Dims()
	out := mat.NewDense(n, p+pad, nil)
	out.Slice(0, n, 0, p).(*mat.Dense).Copy(X)
	col := p
	for _, e := range extra {
		_, c := e.Dims()
		out.Slice(0, n, col, col+c).(*mat.Dense).Copy(e)
		col += c
	}
	return out
}

// fit grows a forest on X and the observation matrices. targets is the width
// of the predictions the estimator returns.
func (m *forestModel) fit(X mat.Matrix, trainer *forest.ForestTrainer, targets int, obs ...mat.Matrix) error {
	op := m.name + ".Fit"
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	obsCols := 0
	for _, o := range obs {
		r, c := o.Dims()
		if r != n {
			return errors.NewDimensionError(op, n, r, 0)
		}
		obsCols += c
	}

	logger := m.logger()
	logger.Info("Fitting forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.TargetsKey, targets,
	)
	start := time.Now()

	train := augment(X, obsCols, obs...)
	d, err := data.NewDenseData(train)
	if err != nil {
		return errors.Wrap(err, op)
	}
	f, err := trainer.Train(d, m.params.forestOptions(p))
	if err != nil {
		logger.Error("Fit failed", err)
		m.state.Reset()
		return errors.Wrap(err, op)
	}

	m.forest = f
	m.train = train
	m.obsCols = obsCols
	m.state.SetFitted(p, n, targets)
	logger.Info("Forest fitted",
		log.NumTreesKey, f.NumTrees(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// predict runs p on the rows of X.
func (m *forestModel) predict(X mat.Matrix, p *forest.ForestPredictor, method string) ([]prediction.Prediction, error) {
	if err := m.state.RequireFitted(m.name, method); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := m.state.RequireFeatures(m.name+"."+method, cols); err != nil {
		return nil, err
	}
	d, err := data.NewDenseData(augment(X, m.obsCols))
	if err != nil {
		return nil, errors.Wrap(err, m.name+"."+method)
	}
	preds, err := p.Predict(m.forest, d)
	if err != nil {
		return nil, errors.Wrap(err, m.name+"."+method)
	}
	m.logPredictions(log.OperationPredict, preds)
	return preds, nil
}

// predictOOB runs p on the training rows, each through its out-of-bag trees.
func (m *forestModel) predictOOB(p *forest.ForestPredictor) ([]prediction.Prediction, error) {
	if err := m.state.RequireFitted(m.name, "PredictOOB"); err != nil {
		return nil, err
	}
	d, err := data.NewDenseData(m.train)
	if err != nil {
		return nil, errors.Wrap(err, m.name+".PredictOOB")
	}
	preds, err := p.PredictOOB(m.forest, d)
	if err != nil {
		return nil, errors.Wrap(err, m.name+".PredictOOB")
	}
	m.logPredictions(log.OperationPredictOOB, preds)
	return preds, nil
}

func (m *forestModel) logPredictions(op string, preds []prediction.Prediction) {
	empty := 0
	for _, p := range preds {
		if p.IsEmpty() {
			empty++
		}
	}
	m.logger().Debug("Predictions collected",
		log.OperationKey, op,
		log.PredsKey, len(preds),
		log.EmptyPredsKey, empty,
	)
}

// requireVariance fails when the forest was grown without CI groups.
func (m *forestModel) requireVariance() error {
	if m.forest != nil && m.forest.CIGroupSize() < 2 {
		return errors.NewValidationError("ci_group_size", "must be greater than 1 to estimate variance", m.forest.CIGroupSize())
	}
	return nil
}

// trainingTargets returns the observation columns of the training matrix.
func (m *forestModel) trainingTargets(from, to int) mat.Matrix {
	n, _ := m.train.Dims()
	p, _, _ := m.state.GetDimensions()
	return m.train.Slice(0, n, p+from, p+to)
}

// toMatrices lays predictions out as rows. Variance is NaN where a prediction
// carries none.
func toMatrices(preds []prediction.Prediction, width int, withVariance bool) (values, variance *mat.Dense) {
	values = mat.NewDense(len(preds), width, nil)
	if withVariance {
		variance = mat.NewDense(len(preds), width, nil)
	}
	for i, p := range preds {
		values.SetRow(i, p.Predictions)
		if !withVariance {
			continue
		}
		if p.ContainsVarianceEstimates() {
			variance.SetRow(i, p.VarianceEstimates)
			continue
		}
		for j := 0; j < width; j++ {
			variance.Set(i, j, math.NaN())
		}
	}
	return values, variance
}

type gobForestModel struct {
	Params  Params
	State   model.ModelState
	Forest  *forest.Forest
	Train   *mat.Dense
	ObsCols int
}

func (m *forestModel) gobEncode() ([]byte, error) {
	if err := m.state.RequireFitted(m.name, "Save"); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	g := gobForestModel{Params: m.params, State: m.state.GetState(), Forest: m.forest, Train: m.train, ObsCols: m.obsCols}
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, errors.Wrapf(err, "encode %s", m.name)
	}
	return buf.Bytes(), nil
}

func (m *forestModel) gobDecode(b []byte) error {
	var g gobForestModel
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&g); err != nil {
		return errors.Wrapf(err, "decode %s", m.name)
	}
	m.params = g.Params
	if m.state == nil {
		m.state = model.NewStateManager()
	}
	m.state.SetState(g.State)
	m.forest = g.Forest
	m.train = g.Train
	m.obsCols = g.ObsCols
	return nil
}
