package main

import (
	"io"
	"os"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/YuminosukeSato/grf/pkg/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

type predictOptions struct {
	dataPath    string
	modelPath   string
	outPath     string
	variance    bool
	plotPath    string
	plotFeature string
}

func newPredictCmd(a *app) *cobra.Command {
	o := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict with a trained forest",
		Long: `Predict every row of a CSV file with a model written by train.

The file must contain the feature columns the model was trained on; other
columns are ignored. Output is CSV with one prediction column and, with
--variance, one variance column.

Examples:
  grf predict --model houses.gob --data new.csv --out predictions.csv

  # Confidence-interval chart against the feature "sqft"
  grf predict --model houses.gob --data new.csv --variance --plot ci.png --plot-feature sqft`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.dataPath, "data", "d", "", "CSV file to predict, - for stdin")
	f.StringVarP(&o.modelPath, "model", "m", "model.gob", "model file written by train")
	f.StringVarP(&o.outPath, "out", "o", "-", "output CSV file, - for stdout")
	f.BoolVar(&o.variance, "variance", false, "also output variance estimates")
	f.StringVar(&o.plotPath, "plot", "", "write a PNG or SVG chart of the predictions")
	f.StringVar(&o.plotFeature, "plot-feature", "", "feature on the chart's x axis (default: the first feature)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runPredict(cmd *cobra.Command, o *predictOptions) error {
	mf, err := loadModelFile(o.modelPath)
	if err != nil {
		return err
	}
	t, err := readTable(o.dataPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	X, err := t.columns(mf.Features)
	if err != nil {
		return err
	}

	pred, variance, err := mf.predict(X, o.variance)
	if err != nil {
		return err
	}
	header, out := mf.outputNames(), mat.Matrix(pred)
	if variance != nil {
		header = append(header, header[0]+"_variance")
		var joined mat.Dense
		joined.Augment(pred, variance)
		out = &joined
	}

	var w io.Writer = cmd.OutOrStdout()
	if o.outPath != "-" {
		f, err := os.Create(o.outPath)
		if err != nil {
			return errors.Wrap(err, "create output file")
		}
		defer f.Close()
		w = f
	}
	if err := writeTable(w, header, out); err != nil {
		return err
	}

	if o.plotPath != "" {
		feature := o.plotFeature
		if feature == "" {
			feature = mf.Features[0]
		}
		col, err := t.columns([]string{feature})
		if err != nil {
			return err
		}
		if err := plotPredictions(o.plotPath, feature, mf.outputNames()[0], col, pred, variance); err != nil {
			return err
		}
		log.GetLoggerWithName("cmd.grf").Info("Chart written", "path", o.plotPath)
	}
	return nil
}
