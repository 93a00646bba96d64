package ensemble

import (
	"math"

	"github.com/YuminosukeSato/grf/forest"
	"github.com/YuminosukeSato/grf/tree"
)

// Params are the forest hyperparameters shared by every estimator in this package.
type Params struct {
	NumTrees       int
	CIGroupSize    int
	SampleFraction float64
	// Mtry of 0 selects min(ceil(sqrt(p)+20), p) for p features.
	Mtry        int
	MinNodeSize int
	Honesty     bool
	Alpha       float64
	// SplitRegularization only affects causal forests.
	SplitRegularization float64
	NumThreads          int
	Seed                uint64
}

// DefaultParams returns 2000 honest trees grown in pairs on half-samples.
func DefaultParams() Params {
	return Params{
		NumTrees:       2000,
		CIGroupSize:    2,
		SampleFraction: 0.5,
		MinNodeSize:    5,
		Honesty:        true,
		Alpha:          0.05,
		Seed:           42,
	}
}

// forestOptions resolves the defaults that depend on the feature count.
func (p Params) forestOptions(numFeatures int) forest.ForestOptions {
	mtry := p.Mtry
	if mtry == 0 {
		mtry = defaultMtry(numFeatures)
	}
	return forest.ForestOptions{
		NumTrees:       p.NumTrees,
		CIGroupSize:    p.CIGroupSize,
		SampleFraction: p.SampleFraction,
		NumThreads:     p.NumThreads,
		Seed:           p.Seed,
		Tree: tree.TreeOptions{
			Honesty:     p.Honesty,
			Mtry:        mtry,
			MinNodeSize: p.MinNodeSize,
		},
	}
}

func defaultMtry(numFeatures int) int {
	m := int(math.Ceil(math.Sqrt(float64(numFeatures)) + 20))
	if m > numFeatures {
		return numFeatures
	}
	return m
}

// Option configures a forest estimator.
type Option func(*Params)

// WithNumTrees sets the number of trees.
func WithNumTrees(n int) Option {
	return func(p *Params) {
		p.NumTrees = n
	}
}

// WithCIGroupSize sets how many trees share a half-sample.
// A size of 1 disables variance estimates.
func WithCIGroupSize(n int) Option {
	return func(p *Params) {
		p.CIGroupSize = n
	}
}

// WithSampleFraction sets the fraction of rows each tree is grown on.
func WithSampleFraction(f float64) Option {
	return func(p *Params) {
		p.SampleFraction = f
	}
}

// WithMtry sets the mean number of candidate variables per split.
func WithMtry(m int) Option {
	return func(p *Params) {
		p.Mtry = m
	}
}

// WithMinNodeSize sets the largest node size that is never split.
func WithMinNodeSize(n int) Option {
	return func(p *Params) {
		p.MinNodeSize = n
	}
}

// WithHonesty enables or disables honest trees.
func WithHonesty(honest bool) Option {
	return func(p *Params) {
		p.Honesty = honest
	}
}

// WithAlpha sets the minimum fraction of a node each child must hold.
func WithAlpha(alpha float64) Option {
	return func(p *Params) {
		p.Alpha = alpha
	}
}

// WithSplitRegularization mixes the treatment into the causal pseudo-outcome.
func WithSplitRegularization(lambda float64) Option {
	return func(p *Params) {
		p.SplitRegularization = lambda
	}
}

// WithNumThreads sets the worker count. 0 uses every core.
func WithNumThreads(n int) Option {
	return func(p *Params) {
		p.NumThreads = n
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(p *Params) {
		p.Seed = seed
	}
}

// WithParams replaces every parameter at once.
func WithParams(params Params) Option {
	return func(p *Params) {
		*p = params
	}
}
