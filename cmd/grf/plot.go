package main

import (
	"image/color"
	"math"
	"sort"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ciZ is the normal quantile of a 95% interval.
const ciZ = 1.96

// intervals pairs points with their error bars for plotter.NewYErrorBars.
type intervals struct {
	plotter.XYs
	plotter.YErrors
}

// plotPredictions charts predictions against one feature. With a variance
// matrix each point carries a 95% confidence interval. Rows with NaN
// predictions are left out.
func plotPredictions(path, xLabel, yLabel string, x, pred, variance mat.Matrix) error {
	n, _ := pred.Dims()
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(pred.At(i, 0)) {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return errors.NewValueError("plot", "no prediction to chart")
	}
	sort.Slice(order, func(a, b int) bool { return x.At(order[a], 0) < x.At(order[b], 0) })

	pts := make(plotter.XYs, len(order))
	errs := make(plotter.YErrors, len(order))
	for k, i := range order {
		pts[k].X = x.At(i, 0)
		pts[k].Y = pred.At(i, 0)
		if variance != nil {
			if v := variance.At(i, 0); !math.IsNaN(v) {
				half := ciZ * math.Sqrt(v)
				errs[k].Low, errs[k].High = half, half
			}
		}
	}

	p := plot.New()
	p.Title.Text = "Forest predictions"
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)
	p.Legend.Add("prediction", scatter)

	if variance != nil {
		bars, err := plotter.NewYErrorBars(intervals{XYs: pts, YErrors: errs})
		if err != nil {
			return errors.Wrap(err, "build error bars")
		}
		bars.Color = color.RGBA{R: 120, G: 120, B: 120, A: 200}
		p.Add(bars)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save chart")
	}
	return nil
}
