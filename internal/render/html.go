package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/track.report/internal/track"
)

// HTMLContentType is the content type of RenderHTML output.
const HTMLContentType = "text/html; charset=utf-8"

// missing is how echarts spells a gap in a series.
const missing = "-"

// RenderHTML draws the same curves and event markers as RenderPNG as an
// interactive echarts page. Signals share the x axis of the first signal.
func RenderHTML(data *track.SensorsData, events map[string][]track.Event) ([]byte, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fuel sensors", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Fuel sensors"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	var yy map[string]track.SignalSeries
	if data != nil {
		yy = data.YY
	}
	ids := sortedKeys(yy)

	var axis []string
	if len(ids) > 0 {
		for _, x := range yy[ids[0]].X {
			axis = append(axis, strconv.FormatFloat(x, 'f', -1, 64))
		}
	}
	line.SetXAxis(axis)

	ordered := orderedEvents(events)
	for _, sid := range ids {
		s := yy[sid]
		line.AddSeries(sid+" Original", lineData(s.Y, nil))
		line.AddSeries(sid+" Filtered", lineData(s.Filtered, nil))
		line.AddSeries(sid+" LSTSQ", lineData(s.Lstsq, nil))

		for _, e := range ordered {
			e := e
			inSpan := func(i int) bool { return i < len(s.TS) && e.Covers(s.TS[i]) }
			line.AddSeries(fmt.Sprintf("%s %s", sid, e.Type), lineData(s.Filtered, inSpan),
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "diamond"}),
			)
		}
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, fmt.Errorf("render html chart: %w", err)
	}
	return buf.Bytes(), nil
}

// lineData converts values to echarts points. When keep is set, values it
// rejects become gaps.
func lineData(values []float64, keep func(i int) bool) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if keep != nil && !keep(i) {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}
