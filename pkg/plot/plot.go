// Package plot renders benchmark sample series to PNG images.
package plot

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Renderer draws sample series at a fixed image size. The output format
// follows the extension of the destination path.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

func New() *Renderer {
	return &Renderer{Width: 1024, Height: 768}
}

// Latency draws one dot per operation: x is the operation index, y its
// latency in microseconds.
func (r *Renderer) Latency(path, label string, samples []uint64) error {
	p := newPlot(label, "operation", "latency (us)")
	if len(samples) > 0 {
		s, err := plotter.NewScatter(points(samples))
		if err != nil {
			return errors.Wrapf(err, "latency plot %s", path)
		}
		s.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		s.GlyphStyle.Radius = vg.Points(1)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
	}
	return r.save(p, path)
}

// Throughput draws the per-second byte counts as a step line.
func (r *Renderer) Throughput(path, label string, samples []uint64) error {
	p := newPlot(label, "second", "bytes written")
	if len(samples) > 0 {
		l, err := plotter.NewLine(points(samples))
		if err != nil {
			return errors.Wrapf(err, "throughput plot %s", path)
		}
		l.StepStyle = plotter.PostStep
		l.LineStyle.Color = color.RGBA{B: 200, A: 255}
		p.Add(l)
	}
	return r.save(p, path)
}

func (r *Renderer) save(p *plot.Plot, path string) error {
	if err := p.Save(r.Width, r.Height, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.X.Min = 0
	p.Y.Min = 0
	return p
}

func points(samples []uint64) plotter.XYs {
	pts := make(plotter.XYs, len(samples))
	for i, v := range samples {
		pts[i].X = float64(i)
		pts[i].Y = float64(v)
	}
	return pts
}
