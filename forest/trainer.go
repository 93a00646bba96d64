package forest

import (
	"context"
	"sort"
	"time"

	"github.com/YuminosukeSato/grf/core/sampling"
	"github.com/YuminosukeSato/grf/data"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/pkg/log"
	"github.com/YuminosukeSato/grf/prediction"
	"github.com/YuminosukeSato/grf/relabeling"
	"github.com/YuminosukeSato/grf/splitting"
	"github.com/YuminosukeSato/grf/tree"
	"golang.org/x/sync/errgroup"
)

// ForestTrainer grows a forest for one statistical target. The observation
// columns it reads are excluded from splitting.
type ForestTrainer struct {
	relabeling         relabeling.RelabelingStrategy
	splittingFactory   splitting.SplittingRuleFactory
	predictionStrategy prediction.OptimizedPredictionStrategy

	outcomeCols   []int
	treatmentCol  int
	instrumentCol int
}

// NewForestTrainer creates a trainer. treatmentCol and instrumentCol are
// ignored when negative; predictionStrategy may be nil.
func NewForestTrainer(r relabeling.RelabelingStrategy, f splitting.SplittingRuleFactory,
	p prediction.OptimizedPredictionStrategy, outcomeCols []int, treatmentCol, instrumentCol int) *ForestTrainer {
	return &ForestTrainer{
		relabeling:         r,
		splittingFactory:   f,
		predictionStrategy: p,
		outcomeCols:        append([]int(nil), outcomeCols...),
		treatmentCol:       treatmentCol,
		instrumentCol:      instrumentCol,
	}
}

// ObservationColumns returns every column read as an observation.
func (t *ForestTrainer) ObservationColumns() []int {
	cols := append([]int(nil), t.outcomeCols...)
	if t.treatmentCol >= 0 {
		cols = append(cols, t.treatmentCol)
	}
	if t.instrumentCol >= 0 {
		cols = append(cols, t.instrumentCol)
	}
	return cols
}

// Train grows opts.NumTrees trees on d. Each CI group is one unit of work
// and draws from a sampler seeded with opts.Seed plus the group index, so
// the forest does not depend on the number of threads.
func (t *ForestTrainer) Train(d data.Data, opts ForestOptions) (*Forest, error) {
	if d.NumRows() == 0 || d.NumCols() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	opts.Tree.NoSplitVariables = union(opts.Tree.NoSplitVariables, t.ObservationColumns())
	if err := opts.Validate(d.NumCols()); err != nil {
		return nil, err
	}

	obs, err := data.ObservationsFromData(d, t.outcomeCols, t.treatmentCol, t.instrumentCol)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("forest.trainer")
	logger.Info("Training forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, d.NumRows(),
		log.FeaturesKey, d.NumCols(),
		log.NumTreesKey, opts.NumTrees,
		log.CIGroupSizeKey, opts.CIGroupSize,
		log.SampleFractionKey, opts.SampleFraction,
		log.HonestyKey, opts.Tree.Honesty,
		log.NumThreadsKey, opts.threads(),
		log.RandomSeedKey, opts.Seed,
	)
	start := time.Now()

	treeTrainer := tree.NewTreeTrainer(t.relabeling, t.splittingFactory, t.predictionStrategy, opts.Tree)
	trees := make([]*tree.Tree, opts.NumTrees)
	numGroups := opts.NumTrees / opts.CIGroupSize

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(opts.threads())
	for group := 0; group < numGroups; group++ {
		group := group
		g.Go(func() (err error) {
			defer errors.Recover(&err, "ForestTrainer.trainGroup")
			if ctx.Err() != nil {
				return nil
			}
			if err := trainGroup(group, treeTrainer, d, obs, opts, trees); err != nil {
				return errors.Wrapf(err, "train tree group %d", group)
			}
			logger.Debug("Tree group trained", log.GroupKey, group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Forest training failed", err)
		return nil, err
	}

	logger.Info("Forest trained",
		log.NumTreesKey, opts.NumTrees,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return NewForest(trees, obs, opts.CIGroupSize, d.NumCols()), nil
}

// trainGroup grows the trees of one CI group into their slots of trees.
func trainGroup(group int, trainer *tree.TreeTrainer, d data.Data, obs *data.Observations,
	opts ForestOptions, trees []*tree.Tree) error {
	sampler := sampling.NewRandomSampler(opts.Seed + uint64(group))
	n := d.NumRows()

	if opts.CIGroupSize == 1 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		sub, _ := sampler.Subsample(all, opts.SampleFraction)
		tr, err := trainer.Train(d, obs, sampler, sub)
		if err != nil {
			return err
		}
		tr.SetOOBSamples(complement(n, sub))
		trees[group] = tr
		return nil
	}

	half, _ := sampler.SampleClusters(n, 0.5)
	for j := 0; j < opts.CIGroupSize; j++ {
		sub, _ := sampler.Subsample(half, 2*opts.SampleFraction)
		tr, err := trainer.Train(d, obs, sampler, sub)
		if err != nil {
			return err
		}
		tr.SetOOBSamples(complement(n, sub))
		trees[group*opts.CIGroupSize+j] = tr
	}
	return nil
}

// complement returns the rows of [0, n) not in samples, ascending.
func complement(n int, samples []int) []int {
	in := make([]bool, n)
	for _, s := range samples {
		in[s] = true
	}
	out := make([]int, 0, n-len(samples))
	for i, ok := range in {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

func union(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, v := range append(append([]int(nil), a...), b...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
