package config

import (
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "GRF_"

const maxConfigFileSize = 1 << 20

var defaults = []byte(`forest:
  type: regression
  num_trees: 2000
  ci_group_size: 2
  sample_fraction: 0.5
  mtry: 0
  min_node_size: 5
  honesty: true
  alpha: 0.05
  split_regularization: 0
  num_threads: 0
  seed: 42
data:
  outcome: y
  treatment: ""
log:
  level: info
  format: json
`)

// Load reads the YAML file at path, if path is not empty, over the defaults
// and applies GRF_ environment overrides.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open config file")
		}
		defer f.Close()

		content, err = io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if len(content) > maxConfigFileSize {
			return nil, errors.NewValidationError("config", "file exceeds 1MB", path)
		}
	}
	return LoadBytes(content)
}

// LoadBytes is Load over YAML content already in memory.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}
	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps GRF_FOREST_NUM_TREES to forest.num_trees.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}
