package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/timeutil"
	"github.com/banshee-data/track.report/internal/track"
)

// Validation messages returned to callers.
const (
	MsgBothIdentities    = "Use only car_id or only gps_code"
	MsgNoIdentity        = "Use car_id or gps_code params"
	MsgDeprecatedVersion = "This version of API is deprecated. Use version=2 or version=3."
)

// ValidationError lists every parameter rule a request violated.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Messages, "; ")
}

// Resolver parses request parameters into descriptors.
type Resolver struct {
	clock timeutil.Clock
	// civil is the fixed calendar local renderings use.
	civil *time.Location
	// host is the zone naive wall-clock readings are taken in.
	host *time.Location
}

// NewResolver creates a Resolver. A nil clock uses the real clock; nil
// zones default to the process zone.
func NewResolver(clock timeutil.Clock, civil, host *time.Location) *Resolver {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if civil == nil {
		civil = time.Local
	}
	if host == nil {
		host = time.Local
	}
	return &Resolver{clock: clock, civil: civil, host: host}
}

// Resolve validates the parameters of a request to endpoint. pathGPSCode is
// the device code taken from the URL path, if any, and wins over the
// gps_code parameter. All violated rules are returned together in a
// *ValidationError.
func (r *Resolver) Resolve(endpoint Endpoint, params url.Values, pathGPSCode string) (*Descriptor, error) {
	var errs []string

	id := track.Identity{CarID: strings.TrimSpace(params.Get("car_id"))}
	if code := strings.Trim(pathGPSCode, "/"); code != "" {
		id.GPSCode = code
	} else {
		id.GPSCode = strings.TrimSpace(params.Get("gps_code"))
	}

	switch {
	case id.CarID != "" && id.GPSCode != "":
		errs = append(errs, MsgBothIdentities)
	case id.CarID == "" && id.GPSCode == "":
		errs = append(errs, MsgNoIdentity)
	}

	version, err := intParam(params, "version", MinVersion)
	if err != nil {
		errs = append(errs, err.Error())
	} else if version < MinVersion && !endpoint.Derived() {
		errs = append(errs, MsgDeprecatedVersion)
	}

	withoutTrack, err := intParam(params, "without_track", 0)
	if err != nil {
		errs = append(errs, err.Error())
	}

	format := FormatJSON
	if raw := params.Get("format"); raw != "" {
		f, ok := parseFormat(raw)
		if !ok {
			errs = append(errs, fmt.Sprintf("Unsupported format %q. Use json, png or html.", raw))
		}
		format = f
	}

	now := r.clock.Now()
	from, fromErr := intParam(params, "from_dt", timeutil.StartOfUTCDay(now))
	if fromErr != nil {
		errs = append(errs, fromErr.Error())
	}
	to, toErr := intParam(params, "to_dt", now.Unix())
	if toErr != nil {
		errs = append(errs, toErr.Error())
	}
	if fromErr == nil && toErr == nil && from > to {
		errs = append(errs, "from_dt must not be later than to_dt")
	}

	if len(errs) > 0 {
		monitoring.Debugf("%s: rejected %s: %s", endpoint, id, strings.Join(errs, "; "))
		return nil, &ValidationError{Messages: errs}
	}

	d := &Descriptor{
		Endpoint:     endpoint,
		Identity:     id,
		Version:      int(version),
		From:         from,
		To:           to,
		FromLocal:    timeutil.FormatWall(from, r.civil),
		ToLocal:      timeutil.FormatWall(to, r.civil),
		FromUTC:      timeutil.NaiveUTC(from, r.host, r.civil),
		ToUTC:        timeutil.NaiveUTC(to, r.host, r.civil),
		WithSensors:  boolParam(params.Get("sensors")),
		WithoutTrack: withoutTrack != 0,
		Balance:      params.Get("is_balance") == "1",
		Format:       format,
	}

	monitoring.Debugf("%s: %s version=%d from_dt=%s (%d) to_dt=%s (%d)",
		endpoint, id, d.Version, d.FromLocal, d.From, d.ToLocal, d.To)
	return d, nil
}

// intParam reads an integer parameter, returning def when it is absent or
// empty.
func intParam(params url.Values, name string, def int64) (int64, error) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, fmt.Errorf("parameter %s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// boolParam treats any non-empty value as true, "0" and "false" included.
func boolParam(raw string) bool {
	return raw != ""
}
