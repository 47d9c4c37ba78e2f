package track

import (
	"context"
	"fmt"
)

// EquipmentUsage is the combined distance and running time of one piece of
// auxiliary equipment.
type EquipmentUsage struct {
	Distance float64 `json:"distance"`
	Time     int64   `json:"time"`
}

// Enrichment holds everything derived from a fetched track by event
// detection and consumption counting. Collections are never nil so they
// encode as empty JSON values rather than null.
type Enrichment struct {
	// Found is true when the detector reported any event.
	Found             bool
	SensorEvents      map[string][]Event
	Parkings          []Parking
	Equipment         map[string][]Interval
	EquipmentDistance map[string]float64
	EquipmentTime     map[string]int64
	Eq                map[string]EquipmentUsage
	Consumptions      Consumptions
	TimeOfParking     int64
}

// Enricher runs event detection and consumption counting over an already
// fetched track.
type Enricher struct {
	Detector EventDetector
	Counter  ConsumptionCounter
}

// NewEnricher creates an Enricher over the given collaborators.
func NewEnricher(d EventDetector, c ConsumptionCounter) *Enricher {
	return &Enricher{Detector: d, Counter: c}
}

// Enrich detects events in strict window mode and folds them into an
// Enrichment. Consumption is only counted when events were found; otherwise
// it is the empty mapping. No further data is fetched here.
func (e *Enricher) Enrich(ctx context.Context, t Track, fromUTC, toUTC string, id Identity) (*Enrichment, error) {
	events, err := e.Detector.DetectEvents(ctx, DetectRequest{
		Track:    t,
		FromUTC:  fromUTC,
		ToUTC:    toUTC,
		Identity: id,
		Strict:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("detect events for %s: %w", id, err)
	}

	out := &Enrichment{
		SensorEvents:      map[string][]Event{},
		Parkings:          []Parking{},
		Equipment:         map[string][]Interval{},
		EquipmentDistance: map[string]float64{},
		EquipmentTime:     map[string]int64{},
		Eq:                map[string]EquipmentUsage{},
		Consumptions:      Consumptions{},
	}
	if events == nil {
		return out, nil
	}

	if events.Sensors != nil {
		out.SensorEvents = events.Sensors
	}
	if events.Parkings != nil {
		out.Parkings = events.Parkings
	}
	if events.Equipment != nil {
		out.Equipment = events.Equipment
	}
	out.TimeOfParking = ParkingTime(out.Parkings)
	out.EquipmentDistance, out.EquipmentTime = EquipmentTotals(t, out.Equipment)
	for name := range out.Equipment {
		out.Eq[name] = EquipmentUsage{
			Distance: out.EquipmentDistance[name],
			Time:     out.EquipmentTime[name],
		}
	}

	out.Found = events.Found()
	if !out.Found {
		return out, nil
	}

	consumptions, err := e.Counter.CountConsumptions(t, out.SensorEvents)
	if err != nil {
		return nil, fmt.Errorf("count consumptions for %s: %w", id, err)
	}
	if consumptions != nil {
		out.Consumptions = consumptions
	}
	return out, nil
}

// ParkingTime is the total duration of all parkings in seconds.
func ParkingTime(parkings []Parking) int64 {
	var total int64
	for _, p := range parkings {
		total += p.Sec
	}
	return total
}

// EquipmentTotals folds per-equipment activity intervals into the distance
// traveled while the equipment was running and its total running time.
func EquipmentTotals(t Track, equipment map[string][]Interval) (map[string]float64, map[string]int64) {
	distance := make(map[string]float64, len(equipment))
	elapsed := make(map[string]int64, len(equipment))
	for name, intervals := range equipment {
		var d float64
		var sec int64
		for _, iv := range intervals {
			d += t.DistanceBetween(iv.Start, iv.End)
			sec += iv.End - iv.Start
		}
		distance[name] = d
		elapsed[name] = sec
	}
	return distance, elapsed
}
