package query

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/track.report/internal/timeutil"
)

var testNow = time.Date(2024, 5, 17, 14, 30, 15, 0, time.UTC)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return NewResolver(timeutil.NewMockClock(testNow), msk, msk)
}

func validationMessages(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Messages
}

func TestResolve_Identity(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	tests := []struct {
		name     string
		params   url.Values
		path     string
		wantMsgs []string
	}{
		{"both", url.Values{"car_id": {"42"}, "gps_code": {"ABC"}}, "", []string{MsgBothIdentities}},
		{"neither", url.Values{}, "", []string{MsgNoIdentity}},
		{"empty values count as absent", url.Values{"car_id": {""}, "gps_code": {" "}}, "", []string{MsgNoIdentity}},
		{"path code and car id", url.Values{"car_id": {"42"}}, "ABC/", []string{MsgBothIdentities}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(EndpointTracks, tt.params, tt.path)
			assert.Equal(t, tt.wantMsgs, validationMessages(t, err))
		})
	}
}

func TestResolve_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	_, err := r.Resolve(EndpointTracks, url.Values{
		"version":  {"1"},
		"format":   {"gif"},
		"from_dt":  {"soon"},
		"car_id":   {"1"},
		"gps_code": {"X"},
	}, "")
	msgs := validationMessages(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, MsgBothIdentities, msgs[0])
	assert.Equal(t, MsgDeprecatedVersion, msgs[1])
	assert.Contains(t, msgs[2], "gif")
	assert.Contains(t, msgs[3], "from_dt")
}

func TestResolve_VersionGate(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	params := url.Values{"car_id": {"42"}, "version": {"1"}}

	_, err := r.Resolve(EndpointTracks, params, "")
	assert.Equal(t, []string{MsgDeprecatedVersion}, validationMessages(t, err))

	for _, ep := range []Endpoint{EndpointLength, EndpointConsumption, EndpointInfo} {
		d, err := r.Resolve(ep, params, "")
		require.NoError(t, err, ep.String())
		assert.False(t, d.Supported(), ep.String())
	}
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	d, err := r.Resolve(EndpointTracks, url.Values{"car_id": {"42"}}, "")
	require.NoError(t, err)

	assert.Equal(t, "42", d.Identity.CarID)
	assert.Empty(t, d.Identity.GPSCode)
	assert.Equal(t, MinVersion, d.Version)
	assert.Equal(t, FormatJSON, d.Format)
	assert.False(t, d.WithSensors)
	assert.False(t, d.WithoutTrack)
	assert.False(t, d.Balance)

	midnight := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight.Unix(), d.From)
	assert.Equal(t, testNow.Unix(), d.To)
	assert.LessOrEqual(t, d.From, d.To)
	assert.Equal(t, "2024-05-17 03:00:00", d.FromLocal)
	assert.Equal(t, "2024-05-17 17:30:15", d.ToLocal)
	assert.Equal(t, "2024-05-17 00:00:00", d.FromUTC)
	assert.Equal(t, "2024-05-17 14:30:15", d.ToUTC)
}

func TestResolve_ExplicitWindow(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	d, err := r.Resolve(EndpointInfo, url.Values{
		"gps_code":      {"ABC123"},
		"from_dt":       {"1700000000"},
		"to_dt":         {"1700003600"},
		"version":       {"3"},
		"sensors":       {"1"},
		"without_track": {"1"},
		"is_balance":    {"1"},
		"format":        {"PNG"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000), d.From)
	assert.Equal(t, int64(1700003600), d.To)
	assert.Equal(t, 3, d.Version)
	assert.True(t, d.WithSensors)
	assert.True(t, d.WithoutTrack)
	assert.True(t, d.Balance)
	assert.Equal(t, FormatPNG, d.Format)
	assert.True(t, d.Format.Diagnostic())
}

func TestResolve_WindowOrder(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	_, err := r.Resolve(EndpointLength, url.Values{
		"car_id":  {"1"},
		"from_dt": {"200"},
		"to_dt":   {"100"},
	}, "")
	assert.Equal(t, []string{"from_dt must not be later than to_dt"}, validationMessages(t, err))
}

func TestResolve_NaiveUTCQuirk(t *testing.T) {
	t.Parallel()
	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	r := NewResolver(timeutil.NewMockClock(testNow), msk, time.UTC)

	d, err := r.Resolve(EndpointTracks, url.Values{
		"car_id":  {"1"},
		"from_dt": {"1700000000"},
		"to_dt":   {"1700000000"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "2023-11-15 01:13:20", d.FromLocal)
	// UTC wall clock relabelled as Moscow time, then converted back to UTC
	assert.Equal(t, "2023-11-14 19:13:20", d.FromUTC)
}

func TestResolve_MalformedBoundSkipsOrderCheck(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	tests := []struct {
		name   string
		params url.Values
		bad    string
	}{
		{"from", url.Values{"car_id": {"1"}, "from_dt": {"abc"}, "to_dt": {"100"}}, "from_dt"},
		{"to", url.Values{"car_id": {"1"}, "from_dt": {"200"}, "to_dt": {"x"}}, "to_dt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(EndpointTracks, tt.params, "")
			msgs := validationMessages(t, err)
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], tt.bad)
			assert.Contains(t, msgs[0], "must be an integer")
		})
	}
}

func TestResolve_SensorsAnyValue(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	d, err := r.Resolve(EndpointTracks, url.Values{"car_id": {"1"}, "sensors": {"0"}}, "")
	require.NoError(t, err)
	assert.True(t, d.WithSensors)
}

func TestResolve_PathGPSCode(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	d, err := r.Resolve(EndpointTracks, url.Values{"gps_code": {"IGNORED"}}, "/ABC123/")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", d.Identity.GPSCode)
}

func TestBoolParam(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"":      false,
		"0":     true,
		"false": true,
		"1":     true,
		"true":  true,
		"yes":   true,
	}
	for in, want := range tests {
		assert.Equal(t, want, boolParam(in), "boolParam(%q)", in)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Messages: []string{"a", "b"}}
	assert.Equal(t, "invalid request: a; b", err.Error())
}
