package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/track.report/internal/fsutil"
	"github.com/banshee-data/track.report/internal/timeutil"
	"github.com/banshee-data/track.report/internal/track"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func series(ts ...int64) track.SignalSeries {
	s := track.SignalSeries{TS: ts}
	for i := range ts {
		x := float64(i)
		s.X = append(s.X, x)
		s.Y = append(s.Y, 50-x)
		s.Filtered = append(s.Filtered, 50-x+0.1)
		s.Lstsq = append(s.Lstsq, 50-x)
	}
	return s
}

func twoSensors() (*track.SensorsData, map[string][]track.Event) {
	data := &track.SensorsData{YY: map[string]track.SignalSeries{
		"s1": series(100, 110, 120, 130, 140),
		"s2": series(100, 110, 120, 130, 140),
	}}
	events := map[string][]track.Event{
		"s1": {{SensorID: "s1", Type: "drain", StartPoint: track.Point{Timestamp: 110}, EndPoint: track.Point{Timestamp: 120}}},
		"s2": {{SensorID: "s2", Type: "refill", StartPoint: track.Point{Timestamp: 130}, EndPoint: track.Point{Timestamp: 140}}},
	}
	return data, events
}

func newTestRenderer(fs fsutil.FileSystem) *Renderer {
	clock := timeutil.NewMockClock(time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC))
	r := NewRenderer(fs, "/tmp/trackreport", clock)
	r.newID = func() string { return "fixed" }
	return r
}

func TestPalette(t *testing.T) {
	t.Parallel()

	p := NewPalette()
	require.Equal(t, 9, p.Remaining())

	first := p.Next()
	assert.Equal(t, blue, first.Color)
	assert.Equal(t, dashDotDot, first.Dashes)

	for p.Remaining() > 0 {
		p.Next()
	}
	assert.Equal(t, Fallback, p.Next())
	assert.Equal(t, Fallback, p.Next())
}

func TestPalette_NoRepeats(t *testing.T) {
	t.Parallel()

	p := NewPalette()
	seen := map[string]bool{}
	for p.Remaining() > 0 {
		s := p.Next()
		key := fmt.Sprint(s.Color, s.Dashes)
		assert.False(t, seen[key], "style %s handed out twice", key)
		seen[key] = true
	}
	assert.Len(t, seen, 9)
}

func TestEventPoints(t *testing.T) {
	t.Parallel()

	s := series(100, 110, 120, 130)
	e := track.Event{StartPoint: track.Point{Timestamp: 105}, EndPoint: track.Point{Timestamp: 120}}

	pts := EventPoints(s, e)
	require.Len(t, pts, 2, "only samples inside the span are kept")
	assert.Equal(t, 1.0, pts[0].X)
	assert.Equal(t, 2.0, pts[1].X)
	assert.Equal(t, s.Filtered[1], pts[0].Y)

	outside := track.Event{StartPoint: track.Point{Timestamp: 500}, EndPoint: track.Point{Timestamp: 600}}
	assert.Empty(t, EventPoints(s, outside))
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(fsutil.NewMemoryFileSystem())
	assert.Equal(t, "/tmp/trackreport/graph-2024-05-17-fixed.png", r.ArtifactName())

	random := NewRenderer(fsutil.NewMemoryFileSystem(), "/tmp", nil)
	assert.NotEqual(t, random.ArtifactName(), random.ArtifactName())
}

func TestRenderPNG_RemovesArtifact(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	r := newTestRenderer(mfs)
	data, events := twoSensors()

	img, err := r.RenderPNG(context.Background(), data, events)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic), "output is not a PNG")

	created := mfs.Created()
	require.Len(t, created, 1)
	assert.False(t, mfs.Exists(created[0]), "artifact must not outlive the request")
	assert.Empty(t, mfs.Files("/tmp/trackreport"))
}

func TestRenderPNG_OnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(fsutil.OSFileSystem{}, dir, nil)
	data, events := twoSensors()

	img, err := r.RenderPNG(context.Background(), data, events)
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	osfs := fsutil.OSFileSystem{}
	assert.True(t, osfs.Exists(dir))
	r.newID = func() string { return "probe" }
	assert.False(t, osfs.Exists(r.ArtifactName()))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
func (failingWriter) Close() error              { return nil }

// failingFS registers the file like a real filesystem would, then fails the
// write.
type failingFS struct {
	*fsutil.MemoryFileSystem
}

func (f failingFS) Create(name string) (io.WriteCloser, error) {
	w, err := f.MemoryFileSystem.Create(name)
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return failingWriter{}, nil
}

func TestRenderPNG_RemovesArtifactOnFailure(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	r := newTestRenderer(failingFS{mfs})
	data, events := twoSensors()

	_, err := r.RenderPNG(context.Background(), data, events)
	require.Error(t, err)

	created := mfs.Created()
	require.Len(t, created, 1)
	assert.False(t, mfs.Exists(created[0]), "artifact must be removed on failure too")
}

func TestRenderPNG_CanceledContext(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRenderer(mfs).RenderPNG(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mfs.Created())
}

func TestBuildPlot_EmptyData(t *testing.T) {
	t.Parallel()

	p, err := BuildPlot(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = BuildPlot(&track.SensorsData{YY: map[string]track.SignalSeries{"s1": {}}}, nil)
	require.NoError(t, err)
	_, err = p.WriterTo(plotWidth, plotHeight, "png")
	assert.NoError(t, err)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	data, events := twoSensors()
	page, err := RenderHTML(data, events)
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "s1 Filtered")
	assert.Contains(t, html, "s2 refill")
	assert.Contains(t, html, "echarts")
}
