package detect

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/track.report/internal/track"
)

// MovingAverage smooths values with a centered window of the given width.
// Near the edges the window shrinks to the samples available.
func MovingAverage(values []float64, width int) []float64 {
	out := make([]float64, len(values))
	if width < 1 {
		width = 1
	}
	half := width / 2
	for i := range values {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > len(values)-1 {
			hi = len(values) - 1
		}
		out[i] = stat.Mean(values[lo:hi+1], nil)
	}
	return out
}

// LeastSquares evaluates the ordinary least-squares line of y over x at
// every x. Fewer than two distinct x values yield y itself.
func LeastSquares(x, y []float64) []float64 {
	out := make([]float64, len(y))
	if len(x) < 2 || stat.Variance(x, nil) == 0 {
		copy(out, y)
		return out
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	for i, xi := range x {
		out[i] = alpha + beta*xi
	}
	return out
}

// BuildSensorsData turns the readings of the given sensors into processed
// signals. X is the sample index, so gaps in a sensor's readings do not
// stretch its curve.
func BuildSensorsData(t track.Track, sensorIDs []string, width int) *track.SensorsData {
	ids := append([]string(nil), sensorIDs...)
	sort.Strings(ids)

	data := &track.SensorsData{YY: map[string]track.SignalSeries{}}
	for _, sid := range ids {
		var s track.SignalSeries
		for _, p := range t {
			v, ok := p.Sensors[sid]
			if !ok {
				continue
			}
			s.X = append(s.X, float64(len(s.X)))
			s.Y = append(s.Y, v)
			s.TS = append(s.TS, p.Timestamp)
		}
		if len(s.Y) == 0 {
			continue
		}
		s.Filtered = MovingAverage(s.Y, width)
		s.Lstsq = LeastSquares(s.X, s.Filtered)
		data.YY[sid] = s
	}
	return data
}
