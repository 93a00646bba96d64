// Package config loads the grf command-line configuration.
//
// Values are layered, highest precedence first:
//  1. Environment variables with the GRF_ prefix
//  2. The YAML file passed to Load
//  3. Built-in defaults
//
// Environment variables map to keys by dropping the prefix and splitting the
// section from the field at the first underscore:
//
//	GRF_FOREST_NUM_TREES -> forest.num_trees
//	GRF_LOG_LEVEL        -> log.level
package config

import (
	"strings"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/sklearn/ensemble"
)

// Forest types understood by the CLI.
const (
	ForestRegression = "regression"
	ForestCausal     = "causal"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatZerolog = "zerolog"
)

// Config is the complete CLI configuration.
type Config struct {
	Forest ForestConfig `koanf:"forest"`
	Data   DataConfig   `koanf:"data"`
	Log    LogConfig    `koanf:"log"`
}

// ForestConfig holds the forest hyperparameters.
type ForestConfig struct {
	Type                string  `koanf:"type"`
	NumTrees            int     `koanf:"num_trees"`
	CIGroupSize         int     `koanf:"ci_group_size"`
	SampleFraction      float64 `koanf:"sample_fraction"`
	Mtry                int     `koanf:"mtry"` // 0 picks a default from the feature count
	MinNodeSize         int     `koanf:"min_node_size"`
	Honesty             bool    `koanf:"honesty"`
	Alpha               float64 `koanf:"alpha"`
	SplitRegularization float64 `koanf:"split_regularization"`
	NumThreads          int     `koanf:"num_threads"`
	Seed                uint64  `koanf:"seed"`
}

// DataConfig names the CSV columns that hold observations. Every other
// column is a feature.
type DataConfig struct {
	Outcome   string `koanf:"outcome"`
	Treatment string `koanf:"treatment"`
}

// LogConfig selects the logging backend.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Params converts the forest section into estimator parameters.
func (c ForestConfig) Params() ensemble.Params {
	return ensemble.Params{
		NumTrees:            c.NumTrees,
		CIGroupSize:         c.CIGroupSize,
		SampleFraction:      c.SampleFraction,
		Mtry:                c.Mtry,
		MinNodeSize:         c.MinNodeSize,
		Honesty:             c.Honesty,
		Alpha:               c.Alpha,
		SplitRegularization: c.SplitRegularization,
		NumThreads:          c.NumThreads,
		Seed:                c.Seed,
	}
}

// Validate checks the values that the forest itself does not.
func (c *Config) Validate() error {
	switch c.Forest.Type {
	case ForestRegression:
	case ForestCausal:
		if c.Data.Treatment == "" {
			return errors.NewValidationError("data.treatment", "is required for causal forests", c.Data.Treatment)
		}
	default:
		return errors.NewValidationError("forest.type", "must be regression or causal", c.Forest.Type)
	}
	if c.Data.Outcome == "" {
		return errors.NewValidationError("data.outcome", "is required", c.Data.Outcome)
	}
	if c.Data.Treatment != "" && c.Data.Treatment == c.Data.Outcome {
		return errors.NewValidationError("data.treatment", "must differ from data.outcome", c.Data.Treatment)
	}
	if c.Forest.NumTrees < 1 {
		return errors.NewValidationError("forest.num_trees", "must be positive", c.Forest.NumTrees)
	}
	if c.Forest.CIGroupSize < 1 {
		return errors.NewValidationError("forest.ci_group_size", "must be positive", c.Forest.CIGroupSize)
	}
	if c.Forest.NumTrees%c.Forest.CIGroupSize != 0 {
		return errors.NewValidationError("forest.num_trees", "must be a multiple of forest.ci_group_size", c.Forest.NumTrees)
	}
	if c.Forest.SampleFraction <= 0 || c.Forest.SampleFraction > 1 {
		return errors.NewValidationError("forest.sample_fraction", "must be in (0, 1]", c.Forest.SampleFraction)
	}
	if c.Forest.Alpha < 0 || c.Forest.Alpha >= 0.5 {
		return errors.NewValidationError("forest.alpha", "must be in [0, 0.5)", c.Forest.Alpha)
	}
	switch strings.ToLower(c.Log.Format) {
	case LogFormatJSON, LogFormatZerolog:
	default:
		return errors.NewValidationError("log.format", "must be json or zerolog", c.Log.Format)
	}
	return nil
}
