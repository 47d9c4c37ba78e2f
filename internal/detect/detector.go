// Package detect provides the reference event detector and consumption
// counter used when the service runs against its own track store.
package detect

import (
	"context"
	"fmt"
	"sort"

	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/timeutil"
	"github.com/banshee-data/track.report/internal/track"
)

// Event types emitted for fuel sensors.
const (
	EventRefill = "refill"
	EventDrain  = "drain"
)

// SensorCatalog reports the kind of every sensor installed on a vehicle,
// keyed by sensor id.
type SensorCatalog interface {
	SensorKinds(ctx context.Context, id track.Identity) (map[string]string, error)
}

// Thresholds tune event detection.
type Thresholds struct {
	// RefillLiters is the smallest level rise reported as a refill.
	RefillLiters float64
	// DrainLiters is the smallest level drop while parked reported as a drain.
	DrainLiters float64
	// ParkingSpeed is the highest speed, in km/h, that counts as standing.
	ParkingSpeed float64
	// ParkingMinSec is the shortest stop reported as a parking.
	ParkingMinSec int64
	// SmoothingWindow is the moving average width applied to fuel levels.
	SmoothingWindow int
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RefillLiters:    10,
		DrainLiters:     5,
		ParkingSpeed:    3,
		ParkingMinSec:   180,
		SmoothingWindow: 5,
	}
}

// Detector finds fuel events, parkings and equipment activity in a track.
type Detector struct {
	catalog SensorCatalog
	th      Thresholds
}

// NewDetector creates a Detector that looks sensor kinds up in catalog.
func NewDetector(catalog SensorCatalog, th Thresholds) *Detector {
	if th.SmoothingWindow < 1 {
		th.SmoothingWindow = 1
	}
	return &Detector{catalog: catalog, th: th}
}

// DetectEvents implements track.EventDetector. In strict mode only points
// inside [FromUTC, ToUTC] are considered, so no event starts or ends outside
// the window.
func (d *Detector) DetectEvents(ctx context.Context, req track.DetectRequest) (*track.EventSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	points := req.Track
	if req.Strict {
		from, err := timeutil.ParseWallUTC(req.FromUTC)
		if err != nil {
			return nil, fmt.Errorf("window start: %w", err)
		}
		to, err := timeutil.ParseWallUTC(req.ToUTC)
		if err != nil {
			return nil, fmt.Errorf("window end: %w", err)
		}
		points = window(points, from, to)
	}

	kinds, err := d.catalog.SensorKinds(ctx, req.Identity)
	if err != nil {
		return nil, fmt.Errorf("sensor kinds: %w", err)
	}

	set := &track.EventSet{
		Sensors:   map[string][]track.Event{},
		Parkings:  d.parkings(points),
		Equipment: map[string][]track.Interval{},
	}

	ids := make([]string, 0, len(kinds))
	for id := range kinds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, sid := range ids {
		switch kinds[sid] {
		case track.KindFuel:
			if events := d.fuelEvents(sid, points); len(events) > 0 {
				set.Sensors[sid] = events
			}
		case track.KindEquipment:
			if spans := equipmentIntervals(sid, points); len(spans) > 0 {
				set.Equipment[sid] = spans
			}
		}
	}

	monitoring.Debugf("detect %s: %d points, %d fuel sensors with events, %d parkings, %d equipment",
		req.Identity, len(points), len(set.Sensors), len(set.Parkings), len(set.Equipment))
	return set, nil
}

// window returns the sub-slice of t with timestamps in [from, to]. t must be
// sorted.
func window(t track.Track, from, to int64) track.Track {
	lo := sort.Search(len(t), func(i int) bool { return t[i].Timestamp >= from })
	hi := sort.Search(len(t), func(i int) bool { return t[i].Timestamp > to })
	if lo >= hi {
		return track.Track{}
	}
	return t[lo:hi]
}

func (d *Detector) standing(p track.Point) bool {
	return p.Speed <= d.th.ParkingSpeed
}

func (d *Detector) parkings(t track.Track) []track.Parking {
	out := []track.Parking{}
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		sec := t[end].Timestamp - t[start].Timestamp
		if sec >= d.th.ParkingMinSec && sec > 0 {
			out = append(out, track.Parking{StartPoint: t[start], EndPoint: t[end], Sec: sec})
		}
		start = -1
	}
	for i, p := range t {
		if d.standing(p) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(t) - 1)
	return out
}

// sample is one fuel level reading taken from the track.
type sample struct {
	idx   int
	level float64
}

func levels(sid string, t track.Track) []sample {
	var out []sample
	for i, p := range t {
		if v, ok := p.Sensors[sid]; ok {
			out = append(out, sample{idx: i, level: v})
		}
	}
	return out
}

// fuelEvents walks the smoothed level in monotonic runs. A rise of at least
// RefillLiters is a refill. Within a falling run, each stretch spent standing
// that loses at least DrainLiters is a drain.
func (d *Detector) fuelEvents(sid string, t track.Track) []track.Event {
	raw := levels(sid, t)
	if len(raw) < 2 {
		return nil
	}
	values := make([]float64, len(raw))
	for i, s := range raw {
		values[i] = s.level
	}
	smooth := MovingAverage(values, d.th.SmoothingWindow)

	var out []track.Event
	event := func(typ string, start, end int, value float64) track.Event {
		return track.Event{SensorID: sid, Type: typ, Value: value, StartPoint: t[raw[start].idx], EndPoint: t[raw[end].idx]}
	}
	emit := func(start, end int) {
		if delta := smooth[end] - smooth[start]; delta >= d.th.RefillLiters {
			out = append(out, event(EventRefill, start, end, delta))
			return
		}
		seg := -1
		for i := start; i <= end+1; i++ {
			if i <= end && d.standing(t[raw[i].idx]) {
				if seg < 0 {
					seg = i
				}
				continue
			}
			if seg >= 0 {
				if drop := smooth[seg] - smooth[i-1]; drop >= d.th.DrainLiters {
					out = append(out, event(EventDrain, seg, i-1, drop))
				}
				seg = -1
			}
		}
	}

	start, dir := 0, 0
	for i := 1; i < len(smooth); i++ {
		step := sign(smooth[i] - smooth[i-1])
		if step == 0 || step == dir || dir == 0 {
			if dir == 0 {
				dir = step
			}
			continue
		}
		emit(start, i-1)
		start, dir = i-1, step
	}
	emit(start, len(smooth)-1)
	return out
}

// equipmentIntervals reports the spans where the sensor reads above zero.
func equipmentIntervals(sid string, t track.Track) []track.Interval {
	var out []track.Interval
	var cur *track.Interval
	for _, p := range t {
		v, ok := p.Sensors[sid]
		if !ok {
			continue
		}
		if v > 0 {
			if cur == nil {
				cur = &track.Interval{Start: p.Timestamp}
			}
			cur.End = p.Timestamp
			continue
		}
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
