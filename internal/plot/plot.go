// Package plot renders flight traces and episode rewards to PNG files.
package plot

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

// Trace follows the first episode flown in one fleet slot and the final
// reward of every episode in the fleet.
type Trace struct {
	slot    int
	episode uuid.UUID
	closed  bool

	T          []float64
	X, Z       []float64
	Altitude   []float64
	Speed      []float64
	Tilt       []float64
	Throttle   []float64
	Cumulative []float64

	Rewards []float64 // per finished episode, in finishing order
}

// NewTrace follows the given fleet slot.
func NewTrace(slot int) *Trace {
	return &Trace{slot: slot}
}

// Observe takes one fleet tick.
func (tr *Trace) Observe(results []sim.StepResult) {
	for _, res := range results {
		if res.Terminal != nil && res.Step > 0 {
			tr.Rewards = append(tr.Rewards, res.Cumulative)
		}
	}
	if tr.closed || tr.slot >= len(results) {
		return
	}
	res := results[tr.slot]
	if res.Episode == uuid.Nil {
		return
	}
	if tr.episode == uuid.Nil {
		tr.episode = res.Episode
	}
	if res.Episode != tr.episode {
		tr.closed = true
		return
	}

	snap := res.Snapshot
	tr.T = append(tr.T, res.Time)
	tr.X = append(tr.X, snap.Position.X())
	tr.Z = append(tr.Z, snap.Position.Z())
	tr.Altitude = append(tr.Altitude, snap.Position.Y())
	tr.Speed = append(tr.Speed, snap.LinearVelocity.Len())
	tr.Tilt = append(tr.Tilt, sim.TiltAngle(snap.Orientation))
	tr.Throttle = append(tr.Throttle, res.Tick.Effective)
	tr.Cumulative = append(tr.Cumulative, res.Cumulative)
	if res.Terminal != nil {
		tr.closed = true
	}
}

// figure is one chart: its file, axis labels and tick formats.
type figure struct {
	file, title    string
	xlabel, ylabel string
	xfmt, yfmt     string
}

const (
	figureWidth  = 8 * vg.Inch
	figureHeight = 6 * vg.Inch
	figureDPI    = 150
	maxTicks     = 8
)

// Save writes the trace plots into outDir and returns the written files.
func (tr *Trace) Save(outDir string) ([]string, error) {
	if len(tr.T) == 0 {
		return nil, fmt.Errorf("no steps traced")
	}
	series := []struct {
		figure
		xs, ys []float64
	}{
		{figure{"altitude.png", "Altitude", "time (s)", "y (m)", "%.1f", "%.0f"}, tr.T, tr.Altitude},
		{figure{"speed.png", "Speed", "time (s)", "|v| (m/s)", "%.1f", "%.1f"}, tr.T, tr.Speed},
		{figure{"tilt.png", "Tilt from vertical", "time (s)", "tilt (deg)", "%.1f", "%.0f"}, tr.T, tr.Tilt},
		{figure{"throttle.png", "Effective thrust", "time (s)", "thrust level", "%.1f", "%.2f"}, tr.T, tr.Throttle},
		{figure{"reward.png", "Cumulative reward", "time (s)", "reward", "%.1f", "%.1f"}, tr.T, tr.Cumulative},
		{figure{"ground_track.png", "Ground track", "x (m)", "z (m)", "%.0f", "%.0f"}, tr.X, tr.Z},
	}
	var written []string
	for _, s := range series {
		if err := s.figure.line(outDir, s.xs, s.ys); err != nil {
			return written, fmt.Errorf("%s: %w", s.file, err)
		}
		written = append(written, filepath.Join(outDir, s.file))
	}

	if len(tr.Rewards) > 0 {
		f := figure{"episode_rewards.png", "Episode reward", "episode", "cumulative reward", "%.0f", "%.1f"}
		xs := make([]float64, len(tr.Rewards))
		for i := range xs {
			xs[i] = float64(i + 1)
		}
		if err := f.scatter(outDir, xs, tr.Rewards); err != nil {
			return written, fmt.Errorf("%s: %w", f.file, err)
		}
		written = append(written, filepath.Join(outDir, f.file))
	}
	return written, nil
}

// limitedTicker places n evenly spaced ticks across the axis range.
func limitedTicker(n int, labelFmt string) plot.Ticker {
	n = max(n, 2)
	return plot.TickerFunc(func(lo, hi float64) []plot.Tick {
		switch {
		case math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0):
			return nil
		case lo == hi:
			return []plot.Tick{{Value: lo, Label: fmt.Sprintf(labelFmt, lo)}}
		}
		ticks := make([]plot.Tick, n)
		for i := range ticks {
			v := lo + (hi-lo)*float64(i)/float64(n-1)
			ticks[i] = plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)}
		}
		return ticks
	})
}

func (f figure) newPlot() *plot.Plot {
	p := plot.New()
	p.Title.Text = f.title
	p.Title.TextStyle.Font.Size = vg.Points(20)
	p.Title.Padding = vg.Points(10)

	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Font.Size = vg.Points(16)
		ax.Label.Padding = vg.Points(8)
		ax.LineStyle.Width = vg.Points(2)
		ax.Padding = vg.Points(16)
		ax.Tick.Label.Font.Size = vg.Points(13)
	}
	p.X.Label.Text, p.Y.Label.Text = f.xlabel, f.ylabel
	p.X.Tick.Marker = limitedTicker(maxTicks, f.xfmt)
	p.Y.Tick.Marker = limitedTicker(maxTicks, f.yfmt)
	p.Add(plotter.NewGrid())
	return p
}

func xys(xs, ys []float64) (plotter.XYs, error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, fmt.Errorf("plot data invalid: %d x values, %d y values", len(xs), len(ys))
	}
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts, nil
}

func (f figure) line(outDir string, xs, ys []float64) error {
	pts, err := xys(xs, ys)
	if err != nil {
		return err
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.LineStyle.Width = vg.Points(2.5)
	p := f.newPlot()
	p.Add(l)
	return writePNG(p, filepath.Join(outDir, f.file))
}

func (f figure) scatter(outDir string, xs, ys []float64) error {
	pts, err := xys(xs, ys)
	if err != nil {
		return err
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Radius = vg.Points(3)
	p := f.newPlot()
	p.Add(sc)
	return writePNG(p, filepath.Join(outDir, f.file))
}

func writePNG(p *plot.Plot, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(vgimg.UseWH(figureWidth, figureHeight), vgimg.UseDPI(figureDPI))
	p.Draw(draw.New(c))

	out, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer out.Close()

	bw := bufio.NewWriter(out)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
