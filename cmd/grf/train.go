package main

import (
	"fmt"

	"github.com/YuminosukeSato/grf/config"
	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/sklearn/ensemble"
	"github.com/spf13/cobra"
)

type trainOptions struct {
	dataPath  string
	modelPath string
	forest    string
	outcome   string
	treatment string
	numTrees  int
	seed      uint64
}

func newTrainCmd(a *app) *cobra.Command {
	o := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a forest on a CSV file",
		Long: `Train a regression or causal forest on a CSV file with a header row.

The outcome column (and, for causal forests, the treatment column) is
taken from the data section of the configuration or the flags below.
Every other column is a feature.

Examples:
  # Regression forest on the column "price"
  grf train --data houses.csv --outcome price --model houses.gob

  # Causal forest of "income" on the binary treatment "program"
  grf train --type causal --data trial.csv --outcome income --treatment program --model trial.gob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.applyFlags(cmd, a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runTrain(cmd, a.cfg, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.dataPath, "data", "d", "", "training CSV file, - for stdin")
	f.StringVarP(&o.modelPath, "model", "m", "model.gob", "output model file")
	f.StringVar(&o.forest, "type", "", "forest type: regression or causal")
	f.StringVar(&o.outcome, "outcome", "", "outcome column")
	f.StringVar(&o.treatment, "treatment", "", "treatment column (causal forests)")
	f.IntVar(&o.numTrees, "trees", 0, "number of trees")
	f.Uint64Var(&o.seed, "seed", 0, "random seed")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// applyFlags overrides cfg with the flags that were set explicitly.
func (o *trainOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("type") {
		cfg.Forest.Type = o.forest
	}
	if flags.Changed("outcome") {
		cfg.Data.Outcome = o.outcome
	}
	if flags.Changed("treatment") {
		cfg.Data.Treatment = o.treatment
	}
	if flags.Changed("trees") {
		cfg.Forest.NumTrees = o.numTrees
	}
	if flags.Changed("seed") {
		cfg.Forest.Seed = o.seed
	}
}

func runTrain(cmd *cobra.Command, cfg *config.Config, o *trainOptions) error {
	t, err := readTable(o.dataPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	mf := &modelFile{
		Type:      cfg.Forest.Type,
		Features:  t.without(cfg.Data.Outcome, cfg.Data.Treatment),
		Outcome:   cfg.Data.Outcome,
		Treatment: cfg.Data.Treatment,
	}
	if len(mf.Features) == 0 {
		return errors.NewValueError("train", "data has no feature columns")
	}
	X, err := t.columns(mf.Features)
	if err != nil {
		return err
	}
	y, err := t.columns([]string{mf.Outcome})
	if err != nil {
		return err
	}
	rows, _ := X.Dims()
	out := cmd.OutOrStdout()
	opt := ensemble.WithParams(cfg.Forest.Params())

	switch mf.Type {
	case config.ForestCausal:
		w, err := t.columns([]string{mf.Treatment})
		if err != nil {
			return err
		}
		cf := ensemble.NewCausalForest(opt)
		if err := cf.Fit(X, y, w); err != nil {
			return err
		}
		ate, err := cf.AverageEffect()
		if err != nil {
			return err
		}
		mf.Causal = cf
		fmt.Fprintf(out, "trained causal forest: %d trees, %d rows, %d features, average effect %.6g\n",
			cfg.Forest.NumTrees, rows, len(mf.Features), ate)
	default:
		rf := ensemble.NewRegressionForest(opt)
		if err := rf.Fit(X, y); err != nil {
			return err
		}
		oob, err := rf.OOBError()
		if err != nil {
			return err
		}
		mf.Regression = rf
		fmt.Fprintf(out, "trained regression forest: %d trees, %d rows, %d features, OOB MSE %.6g\n",
			cfg.Forest.NumTrees, rows, len(mf.Features), oob)
	}

	if err := mf.save(o.modelPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "model written to %s\n", o.modelPath)
	return nil
}
