// Package testutil provides shared test helpers and track fixtures.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/banshee-data/track.report/internal/track"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewGetRequest builds a GET request for path with the given query.
func NewGetRequest(path string, params url.Values) *http.Request {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return httptest.NewRequest(http.MethodGet, path, nil)
}

// DecodeJSON unmarshals a response body into generic JSON values.
func DecodeJSON(t *testing.T, body []byte) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, body)
	}
	return v
}

// StraightTrack returns n points step seconds apart, heading north at a
// constant speed with each point covering delta meters of odometer.
func StraightTrack(start int64, n int, step int64, speed, delta float64) track.Track {
	t := make(track.Track, n)
	for i := range t {
		t[i] = track.Point{
			Timestamp:     start + int64(i)*step,
			Lat:           55.75 + float64(i)*0.001,
			Lon:           37.61,
			Speed:         speed,
			OdometerDelta: delta,
		}
	}
	return t
}
