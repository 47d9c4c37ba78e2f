// Package query turns raw request parameters into an immutable query
// descriptor: vehicle identity, API version, time window in local and UTC
// wall-clock form, and response flags.
package query

import (
	"strings"

	"github.com/banshee-data/track.report/internal/track"
)

// API versions.
const (
	// MinVersion is the oldest version any endpoint serves.
	MinVersion = 2
	// FullVersion is the first version whose track response carries events
	// and derived metrics.
	FullVersion = 3
)

// Endpoint identifies which response is being assembled.
type Endpoint int

const (
	EndpointTracks Endpoint = iota
	EndpointLength
	EndpointConsumption
	EndpointInfo
)

func (e Endpoint) String() string {
	switch e {
	case EndpointTracks:
		return "tracks"
	case EndpointLength:
		return "length"
	case EndpointConsumption:
		return "consumption"
	case EndpointInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Derived reports whether the endpoint serves derived metrics rather than
// the full track. Derived endpoints answer old versions with a
// "not implemented" notice instead of a validation error.
func (e Endpoint) Derived() bool {
	return e != EndpointTracks
}

// Format is the requested response encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
	FormatHTML Format = "html"
)

// Diagnostic reports whether the format replaces the JSON body with a
// rendered chart.
func (f Format) Diagnostic() bool {
	return f == FormatPNG || f == FormatHTML
}

func parseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatPNG, FormatHTML:
		return f, true
	default:
		return "", false
	}
}

// Descriptor is a resolved query. It is built once per request and never
// modified afterwards.
type Descriptor struct {
	Endpoint Endpoint
	Identity track.Identity
	Version  int

	// From and To are epoch seconds with From <= To.
	From int64
	To   int64

	// FromLocal and ToLocal render the window in the civil zone.
	FromLocal string
	ToLocal   string

	// FromUTC and ToUTC are the naive UTC renderings handed to the event
	// detector.
	FromUTC string
	ToUTC   string

	WithSensors  bool
	WithoutTrack bool
	Balance      bool
	Format       Format
}

// Supported reports whether the descriptor's version is served by its
// endpoint.
func (d *Descriptor) Supported() bool {
	return d.Version >= MinVersion
}

// FetchRequest builds the track fetch call for this query.
func (d *Descriptor) FetchRequest(withSensors, debug bool) track.FetchRequest {
	return track.FetchRequest{
		Identity:    d.Identity,
		From:        d.From,
		To:          d.To,
		WithSensors: withSensors,
		Debug:       debug,
	}
}
