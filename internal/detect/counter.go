package detect

import (
	"sort"

	"github.com/banshee-data/track.report/internal/track"
)

// Counter attributes fuel use to refills, drains and driving.
type Counter struct{}

// CountConsumptions implements track.ConsumptionCounter. For every sensor
// with fuel events, refill and drain are the summed event values and moving
// is whatever the level lost beyond the drains: start - end + refill - drain,
// never below zero. Sensors without events contribute nothing.
func (Counter) CountConsumptions(t track.Track, sensorEvents map[string][]track.Event) (track.Consumptions, error) {
	out := track.Consumptions{}
	if len(sensorEvents) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(sensorEvents))
	for sid := range sensorEvents {
		ids = append(ids, sid)
	}
	sort.Strings(ids)

	for _, sid := range ids {
		var refill, drain float64
		for _, e := range sensorEvents[sid] {
			switch e.Type {
			case EventRefill:
				refill += e.Value
			case EventDrain:
				drain += e.Value
			}
		}
		out[track.ConsumptionRefill] += refill
		out[track.ConsumptionDrain] += drain

		first, last, ok := levelBounds(sid, t)
		if !ok {
			continue
		}
		if moving := first - last + refill - drain; moving > 0 {
			out[track.ConsumptionMoving] += moving
		}
	}
	if _, ok := out[track.ConsumptionMoving]; !ok {
		out[track.ConsumptionMoving] = 0
	}
	return out, nil
}

func levelBounds(sid string, t track.Track) (first, last float64, ok bool) {
	for _, p := range t {
		if v, has := p.Sensors[sid]; has {
			if !ok {
				first, ok = v, true
			}
			last = v
		}
	}
	return first, last, ok
}
