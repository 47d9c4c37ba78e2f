// Package compose assembles response bodies. Each (endpoint, version) pair
// maps to one shape, a pure function from the fetched and enriched data to
// the payload.
package compose

import (
	"math"

	"github.com/banshee-data/track.report/internal/httputil"
	"github.com/banshee-data/track.report/internal/query"
	"github.com/banshee-data/track.report/internal/track"
)

// NotImplementedMessage answers derived-metric requests below MinVersion.
const NotImplementedMessage = "Not implemented (current version API < 2)"

// Object is a JSON object body. Keys are emitted in sorted order.
type Object map[string]interface{}

// Shape names a response layout.
type Shape int

const (
	ShapeNotImplemented Shape = iota
	ShapeTracksBare
	ShapeTracksFull
	ShapeLength
	ShapeConsumption
	ShapeInfo
)

func (s Shape) String() string {
	switch s {
	case ShapeNotImplemented:
		return "not_implemented"
	case ShapeTracksBare:
		return "tracks_bare"
	case ShapeTracksFull:
		return "tracks_full"
	case ShapeLength:
		return "length"
	case ShapeConsumption:
		return "consumption"
	case ShapeInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Select picks the shape for a resolved query.
func Select(d *query.Descriptor) Shape {
	if !d.Supported() {
		return ShapeNotImplemented
	}
	switch d.Endpoint {
	case query.EndpointTracks:
		if d.Version < query.FullVersion {
			return ShapeTracksBare
		}
		return ShapeTracksFull
	case query.EndpointLength:
		return ShapeLength
	case query.EndpointConsumption:
		return ShapeConsumption
	case query.EndpointInfo:
		return ShapeInfo
	}
	return ShapeNotImplemented
}

// Fetches reports whether the shape needs the track fetched at all.
func (s Shape) Fetches() bool {
	return s != ShapeNotImplemented
}

// Enriches reports whether the shape needs event detection.
func (s Shape) Enriches() bool {
	switch s {
	case ShapeTracksFull, ShapeConsumption, ShapeInfo:
		return true
	}
	return false
}

// WithSensors reports whether the fetch must include sensor data, given
// what the caller asked for.
func (s Shape) WithSensors(requested bool) bool {
	switch s {
	case ShapeConsumption, ShapeInfo:
		return true
	case ShapeLength:
		return false
	}
	return requested
}

// Input is everything a shape may draw on. Enriched is nil for shapes that
// do not enrich.
type Input struct {
	Fetched  *track.FetchResult
	Enriched *track.Enrichment
}

var shapes = map[Shape]func(Input) interface{}{
	ShapeNotImplemented: notImplemented,
	ShapeTracksBare:     tracksBare,
	ShapeTracksFull:     tracksFull,
	ShapeLength:         length,
	ShapeConsumption:    consumption,
	ShapeInfo:           info,
}

// Compose builds the body of shape s. Missing collections and numbers come
// out empty or zero rather than null.
func Compose(s Shape, in Input) interface{} {
	if in.Fetched == nil {
		in.Fetched = &track.FetchResult{}
	}
	if in.Enriched == nil {
		in.Enriched = &track.Enrichment{}
	}
	return shapes[s](in)
}

// StripTrack removes the track key from object bodies. Bare track arrays
// have no key and are returned unchanged.
func StripTrack(body interface{}) interface{} {
	if obj, ok := body.(Object); ok {
		delete(obj, "track")
	}
	return body
}

// Encode serializes a body. Identical bodies encode to identical bytes.
func Encode(body interface{}) ([]byte, error) {
	return httputil.EncodeJSON(body)
}

func notImplemented(Input) interface{} {
	return Object{"error": NotImplementedMessage}
}

func tracksBare(in Input) interface{} {
	return trackOf(in.Fetched)
}

func tracksFull(in Input) interface{} {
	f, e := in.Fetched, in.Enriched
	body := Object{
		"track":              trackOf(f),
		"distance":           floatOf(f.Distance),
		"distance_agg2":      floatOf(f.DistanceAgg2),
		"cars_sensors":       sensorsOf(f),
		"parkings":           orEmpty(e.Parkings),
		"sensors":            sensorsOf(f),
		"events":             orEmptyMap(e.SensorEvents),
		"equipment":          orEmptyMap(e.Equipment),
		"equipment_distance": orEmptyMap(e.EquipmentDistance),
		"equipment_time":     orEmptyMap(e.EquipmentTime),
		"time_of_parking":    e.TimeOfParking,
	}
	if f.SensorsData != nil {
		body["sensors_data"] = f.SensorsData
	}
	if e.Found {
		body["consumptions"] = consumptionsOf(e)
	}
	return body
}

func length(in Input) interface{} {
	return Object{
		"distance":      meters(in.Fetched.Distance),
		"distance_agg2": meters(in.Fetched.DistanceAgg2),
	}
}

func consumption(in Input) interface{} {
	return Object{
		"sensors":      sensorsOf(in.Fetched),
		"events":       orEmptyMap(in.Enriched.SensorEvents),
		"eq":           orEmptyMap(in.Enriched.Eq),
		"consumptions": consumptionsOf(in.Enriched),
	}
}

func info(in Input) interface{} {
	var total *float64
	if c := in.Enriched.Consumptions; len(c) > 0 {
		sum := c.Sum()
		total = &sum
	}
	return Object{
		"consumption":   total,
		"distance":      meters(in.Fetched.Distance),
		"distance_agg2": meters(in.Fetched.DistanceAgg2),
		"track":         trackOf(in.Fetched),
	}
}

func trackOf(f *track.FetchResult) track.Track {
	if f.Track == nil {
		return track.Track{}
	}
	return f.Track
}

func sensorsOf(f *track.FetchResult) []track.SensorInfo {
	if f.CarsSensors == nil {
		return []track.SensorInfo{}
	}
	return f.CarsSensors
}

func consumptionsOf(e *track.Enrichment) track.Consumptions {
	if e.Consumptions == nil {
		return track.Consumptions{}
	}
	return e.Consumptions
}

func floatOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// meters truncates a distance toward zero, treating a missing value as 0.
func meters(v *float64) int64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return int64(math.Trunc(*v))
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func orEmptyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}
