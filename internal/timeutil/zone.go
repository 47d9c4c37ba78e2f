package timeutil

import (
	"fmt"
	"time"
)

// WallLayout is the zone-less wall-clock layout exchanged with the event
// detector and written to debug logs.
const WallLayout = "2006-01-02 15:04:05"

// DefaultCivilZone is the civil calendar vehicle fleets report in.
const DefaultCivilZone = "Europe/Moscow"

// IsTimezoneValid checks if the given timezone can be loaded from the tz
// database.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LoadZone loads a named location. "Local" yields the process zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", name, err)
	}
	return loc, nil
}

// StartOfUTCDay returns the epoch seconds of midnight of now's UTC date.
func StartOfUTCDay(now time.Time) int64 {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// FormatWall renders epoch seconds as wall-clock time in loc.
func FormatWall(epoch int64, loc *time.Location) string {
	return time.Unix(epoch, 0).In(loc).Format(WallLayout)
}

// NaiveUTC reproduces the zone-less wall clock model the event detector
// expects: the epoch is read as wall-clock components in host, those
// components are labelled with civil, and the result is converted to UTC.
// When host and civil are the same zone this equals a true conversion.
func NaiveUTC(epoch int64, host, civil *time.Location) string {
	w := time.Unix(epoch, 0).In(host)
	labelled := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, civil)
	return labelled.UTC().Format(WallLayout)
}

// ParseWallUTC parses a WallLayout string as UTC epoch seconds.
func ParseWallUTC(s string) (int64, error) {
	t, err := time.ParseInLocation(WallLayout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid wall-clock time %q: %w", s, err)
	}
	return t.Unix(), nil
}
