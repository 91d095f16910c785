// Package charts renders the training-curve and search plots that end
// up in the paper's figures. Everything is drawn with gonum/plot and
// written wherever the caller points, format picked by extension.
package charts

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/borkh/paper-prep/internal/eventlog"
)

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
	color.RGBA{R: 140, G: 86, B: 75, A: 255},
	color.RGBA{R: 227, G: 119, B: 194, A: 255},
	color.RGBA{R: 127, G: 127, B: 127, A: 255},
}

// Curve is one labelled line, typically one seed of one metric.
type Curve struct {
	Label  string
	Series eventlog.Series
}

// MetricCurves draws every curve into one plot and saves it. Curves
// without points are skipped; a plot with nothing to draw is an error
// so callers do not emit empty figures.
func MetricCurves(curves []Curve, title, yLabel, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	drawn := 0
	for _, c := range curves {
		if len(c.Series) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(c.Series))
		for i, pt := range c.Series {
			xys[i].X = float64(pt.Step)
			xys[i].Y = pt.Value
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("building line %q: %w", c.Label, err)
		}
		line.Color = palette[drawn%len(palette)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(c.Label, line)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("no points to plot for %q", title)
	}
	p.Legend.Top = true
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}

// OptimizationHistory draws the objective of every completed trial
// plus the running best, the classic search-progress picture.
func OptimizationHistory(values []float64, maximize bool, objective, path string) error {
	if len(values) == 0 {
		return fmt.Errorf("no trials to plot")
	}
	p := plot.New()
	p.Title.Text = "Optimization History"
	p.X.Label.Text = "trial"
	p.Y.Label.Text = objective
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(values))
	best := make(plotter.XYs, len(values))
	running := values[0]
	for i, v := range values {
		if maximize && v > running || !maximize && v < running {
			running = v
		}
		pts[i] = plotter.XY{X: float64(i), Y: v}
		best[i] = plotter.XY{X: float64(i), Y: running}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building history scatter: %w", err)
	}
	scatter.GlyphStyle.Color = palette[0]
	scatter.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(scatter)
	p.Legend.Add("objective", scatter)

	line, err := plotter.NewLine(best)
	if err != nil {
		return fmt.Errorf("building best-so-far line: %w", err)
	}
	line.Color = palette[3]
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("best so far", line)

	p.Legend.Top = true
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}

// ParamImportances draws a horizontal bar per parameter, highest
// importance on top.
func ParamImportances(names []string, scores []float64, path string) error {
	if len(names) != len(scores) {
		return fmt.Errorf("importance plot: %d names for %d scores", len(names), len(scores))
	}
	if len(names) == 0 {
		return fmt.Errorf("no parameters to plot")
	}
	p := plot.New()
	p.Title.Text = "Hyperparameter Importance"
	p.X.Label.Text = "importance"

	// Reverse so the most important parameter draws at the top.
	rev := make(plotter.Values, len(scores))
	labels := make([]string, len(names))
	for i := range scores {
		rev[i] = scores[len(scores)-1-i]
		labels[i] = names[len(names)-1-i]
	}
	bars, err := plotter.NewBarChart(rev, vg.Points(18))
	if err != nil {
		return fmt.Errorf("building importance bars: %w", err)
	}
	bars.Horizontal = true
	bars.Color = palette[0]
	p.Add(bars)
	p.NominalY(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}
