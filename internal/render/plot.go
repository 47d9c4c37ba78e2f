// Package render draws the diagnostic chart of processed fuel sensor
// signals with detected events highlighted.
package render

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/track.report/internal/fsutil"
	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/timeutil"
	"github.com/banshee-data/track.report/internal/track"
)

// PNGContentType is the content type of RenderPNG output.
const PNGContentType = "image/png"

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

var eventGlyphs = []draw.GlyphDrawer{
	draw.PlusGlyph{},
	draw.CrossGlyph{},
	draw.TriangleGlyph{},
	draw.SquareGlyph{},
	draw.RingGlyph{},
}

// Renderer turns sensor signals into a PNG through a temporary artifact.
type Renderer struct {
	fs    fsutil.FileSystem
	dir   string
	clock timeutil.Clock
	newID func() string
}

// NewRenderer creates a Renderer writing artifacts under dir.
func NewRenderer(fs fsutil.FileSystem, dir string, clock timeutil.Clock) *Renderer {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Renderer{fs: fs, dir: dir, clock: clock, newID: uuid.NewString}
}

// ArtifactName returns a fresh artifact path: graph-<date>-<random>.png.
func (r *Renderer) ArtifactName() string {
	stamp := r.clock.Now().Format("2006-01-02")
	return filepath.Join(r.dir, fmt.Sprintf("graph-%s-%s.png", stamp, r.newID()))
}

// RenderPNG draws the chart, saves it to a uniquely named artifact, reads it
// back and removes the artifact before returning, on every path.
func (r *Renderer) RenderPNG(ctx context.Context, data *track.SensorsData, events map[string][]track.Event) (img []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := BuildPlot(data, events)
	if err != nil {
		return nil, err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("prepare png canvas: %w", err)
	}

	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	name := r.ArtifactName()
	f, err := r.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	defer func() {
		if rmErr := r.fs.Remove(name); rmErr != nil {
			monitoring.Logf("failed to remove diagnostic artifact %s: %v", name, rmErr)
		}
	}()

	_, werr := wt.WriteTo(f)
	cerr := f.Close()
	if werr != nil {
		return nil, fmt.Errorf("write artifact: %w", werr)
	}
	if cerr != nil {
		return nil, fmt.Errorf("close artifact: %w", cerr)
	}

	img, err = r.fs.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return img, nil
}

// BuildPlot lays out the chart: for each signal the original curve, the
// filtered curve and the least-squares line, plus one marker layer per
// event holding the filtered points inside the event span.
func BuildPlot(data *track.SensorsData, events map[string][]track.Event) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Fuel sensors"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Level"
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if data == nil {
		return p, nil
	}

	palette := NewPalette()
	ordered := orderedEvents(events)

	for _, sid := range sortedKeys(data.YY) {
		s := data.YY[sid]
		if minLen(len(s.X), len(s.Y)) == 0 {
			continue
		}

		orig, err := addLine(p, xys(s.X, s.Y), Style{Color: gray}, 2)
		if err != nil {
			return nil, fmt.Errorf("sensor %s original: %w", sid, err)
		}
		p.Legend.Add(sid+" Original", orig)

		filteredStyle := palette.Next()
		filtered, err := addLine(p, xys(s.X, s.Filtered), filteredStyle, 2)
		if err != nil {
			return nil, fmt.Errorf("sensor %s filtered: %w", sid, err)
		}
		p.Legend.Add(sid+" Filtered", filtered)

		lstsqStyle := Style{Color: palette.Next().Color}
		lstsq, err := addLine(p, xys(s.X, s.Lstsq), lstsqStyle, 1)
		if err != nil {
			return nil, fmt.Errorf("sensor %s lstsq: %w", sid, err)
		}
		p.Legend.Add(sid+" LSTSQ", lstsq)

		for i, e := range ordered {
			pts := EventPoints(s, e)
			style := palette.Next()
			if len(pts) == 0 {
				continue
			}
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, fmt.Errorf("sensor %s event %s: %w", sid, e.Type, err)
			}
			sc.GlyphStyle.Color = style.Color
			sc.GlyphStyle.Radius = vg.Points(5)
			sc.GlyphStyle.Shape = eventGlyphs[i%len(eventGlyphs)]
			p.Add(sc)
			p.Legend.Add(fmt.Sprintf("%s %s", sid, e.Type), sc)
		}
	}
	return p, nil
}

// EventPoints returns the filtered samples of s whose timestamps fall inside
// the event span. Samples outside the span are left out entirely.
func EventPoints(s track.SignalSeries, e track.Event) plotter.XYs {
	n := minLen(len(s.X), len(s.Filtered), len(s.TS))
	var pts plotter.XYs
	for i := 0; i < n; i++ {
		if e.Covers(s.TS[i]) {
			pts = append(pts, plotter.XY{X: s.X[i], Y: s.Filtered[i]})
		}
	}
	return pts
}

func addLine(p *plot.Plot, pts plotter.XYs, style Style, width float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.Color = style.Color
	l.Dashes = style.Dashes
	l.Width = vg.Points(width)
	p.Add(l)
	return l, nil
}

func xys(x, y []float64) plotter.XYs {
	n := minLen(len(x), len(y))
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return pts
}

func orderedEvents(events map[string][]track.Event) []track.Event {
	var out []track.Event
	for _, sid := range sortedKeys(events) {
		out = append(out, events[sid]...)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func minLen(ns ...int) int {
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return m
}
