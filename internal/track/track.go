// Package track holds the vehicle track domain types and the contracts of
// the collaborators that fetch tracks, detect events and count fuel
// consumption.
package track

import (
	"context"
	"sort"
)

// Point is a single timestamped sample of a vehicle track.
type Point struct {
	Timestamp     int64              `json:"timestamp"`
	Lat           float64            `json:"lat"`
	Lon           float64            `json:"lon"`
	Speed         float64            `json:"speed"`
	OdometerDelta float64            `json:"odometer_delta"`
	Sensors       map[string]float64 `json:"sensors,omitempty"`
}

// Track is a sequence of points ordered by timestamp. Every derived
// computation (distance, event windows) relies on that ordering.
type Track []Point

// SortByTimestamp orders the track in place. Equal timestamps keep their
// relative order.
func (t Track) SortByTimestamp() {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Timestamp < t[j].Timestamp
	})
}

// IsSorted reports whether the track satisfies the ordering invariant.
func (t Track) IsSorted() bool {
	return sort.SliceIsSorted(t, func(i, j int) bool {
		return t[i].Timestamp < t[j].Timestamp
	})
}

// DistanceBetween sums the odometer deltas of points whose timestamps fall
// inside [from, to].
func (t Track) DistanceBetween(from, to int64) float64 {
	var d float64
	for _, p := range t {
		if p.Timestamp < from {
			continue
		}
		if p.Timestamp > to {
			break
		}
		d += p.OdometerDelta
	}
	return d
}

// Identity names a vehicle either by car id or by GPS device code.
// Exactly one of the two is set on a resolved query.
type Identity struct {
	CarID   string `json:"car_id,omitempty"`
	GPSCode string `json:"gps_code,omitempty"`
}

func (id Identity) String() string {
	if id.CarID != "" {
		return "car_id=" + id.CarID
	}
	return "gps_code=" + id.GPSCode
}

// Event is a detected interval of sensor-indicated activity.
// StartPoint.Timestamp <= EndPoint.Timestamp.
type Event struct {
	SensorID   string  `json:"sensor_id"`
	Type       string  `json:"type"`
	Value      float64 `json:"value"`
	StartPoint Point   `json:"start_point"`
	EndPoint   Point   `json:"end_point"`
}

// Covers reports whether ts lies inside the event span, bounds included.
func (e Event) Covers(ts int64) bool {
	return e.StartPoint.Timestamp <= ts && ts <= e.EndPoint.Timestamp
}

// Parking is a detected interval of zero or near-zero movement.
type Parking struct {
	StartPoint Point `json:"start_point"`
	EndPoint   Point `json:"end_point"`
	Sec        int64 `json:"sec"`
}

// Interval is a span of equipment activity in epoch seconds.
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// SensorInfo describes a sensor installed on a vehicle.
type SensorInfo struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Sensor kinds understood by the reference detector.
const (
	KindFuel      = "fuel"
	KindEquipment = "equipment"
)

// SignalSeries is one processed sensor signal: the original samples, a
// smoothed version and a least-squares line, aligned by index.
type SignalSeries struct {
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Filtered []float64 `json:"filtered"`
	Lstsq    []float64 `json:"lstsq"`
	TS       []int64   `json:"ts"`
}

// SensorsData carries processed signals keyed by sensor id.
type SensorsData struct {
	YY map[string]SignalSeries `json:"yy"`
}

// FetchResult is the output of the track fetch collaborator.
type FetchResult struct {
	Track        Track        `json:"track"`
	Distance     *float64     `json:"distance"`
	DistanceAgg2 *float64     `json:"distance_agg2"`
	CarsSensors  []SensorInfo `json:"cars_sensors"`
	SensorsData  *SensorsData `json:"sensors_data,omitempty"`
}

// FetchRequest describes which track to fetch. From and To are epoch
// seconds of the local window.
type FetchRequest struct {
	Identity    Identity
	From        int64
	To          int64
	WithSensors bool
	Debug       bool
}

// Fetcher retrieves the raw track of a vehicle. An empty track is a valid
// result and must come back as an empty slice, not an error.
type Fetcher interface {
	FetchTrack(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// EventSet is the output of the event detection collaborator.
type EventSet struct {
	Sensors   map[string][]Event    `json:"sensors"`
	Parkings  []Parking             `json:"parkings"`
	Equipment map[string][]Interval `json:"equipment"`
}

// Found reports whether detection produced anything at all.
func (s *EventSet) Found() bool {
	if s == nil {
		return false
	}
	return len(s.Sensors) > 0 || len(s.Parkings) > 0 || len(s.Equipment) > 0
}

// DetectRequest describes an event detection call. FromUTC and ToUTC use
// the "2006-01-02 15:04:05" layout.
type DetectRequest struct {
	Track    Track
	FromUTC  string
	ToUTC    string
	Identity Identity
	// Strict keeps event boundaries inside the window.
	Strict bool
}

// EventDetector finds operational events, parkings and equipment activity
// in a fetched track. A nil set means nothing was detected.
type EventDetector interface {
	DetectEvents(ctx context.Context, req DetectRequest) (*EventSet, error)
}

// ConsumptionCounter attributes fuel consumption to detected events.
type ConsumptionCounter interface {
	CountConsumptions(t Track, sensorEvents map[string][]Event) (Consumptions, error)
}
