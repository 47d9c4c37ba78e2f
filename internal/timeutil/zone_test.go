package timeutil

import (
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadZone(name)
	if err != nil {
		t.Fatalf("LoadZone(%q): %v", name, err)
	}
	return loc
}

func TestIsTimezoneValid(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		expected bool
	}{
		{"valid UTC", "UTC", true},
		{"valid Moscow", "Europe/Moscow", true},
		{"invalid", "Invalid/Timezone", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := IsTimezoneValid(tt.timezone); res != tt.expected {
				t.Errorf("IsTimezoneValid(%s) = %v, want %v", tt.timezone, res, tt.expected)
			}
		})
	}
}

func TestLoadZone(t *testing.T) {
	if loc := mustZone(t, ""); loc != time.Local {
		t.Errorf("empty name should yield time.Local, got %v", loc)
	}
	if _, err := LoadZone("Nowhere/Special"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestStartOfUTCDay(t *testing.T) {
	now := time.Date(2024, 5, 17, 23, 59, 59, 0, time.FixedZone("X", 5*3600))
	got := StartOfUTCDay(now)
	want := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Errorf("StartOfUTCDay = %d, want %d", got, want)
	}
}

func TestFormatWall(t *testing.T) {
	msk := mustZone(t, "Europe/Moscow")
	// 2023-11-14 22:13:20 UTC
	if got := FormatWall(1700000000, msk); got != "2023-11-15 01:13:20" {
		t.Errorf("FormatWall = %q", got)
	}
}

func TestNaiveUTC(t *testing.T) {
	msk := mustZone(t, "Europe/Moscow")
	utc := mustZone(t, "UTC")

	tests := []struct {
		name string
		host *time.Location
		want string
	}{
		// host equals civil: a true conversion back to the instant
		{"host in civil zone", msk, "2023-11-14 22:13:20"},
		// host differs: UTC wall clock relabelled as Moscow, shifted by 3h
		{"host in UTC", utc, "2023-11-14 19:13:20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NaiveUTC(1700000000, tt.host, msk); got != tt.want {
				t.Errorf("NaiveUTC = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseWallUTC(t *testing.T) {
	got, err := ParseWallUTC("2023-11-14 22:13:20")
	if err != nil {
		t.Fatalf("ParseWallUTC: %v", err)
	}
	if got != 1700000000 {
		t.Errorf("ParseWallUTC = %d, want 1700000000", got)
	}
	if _, err := ParseWallUTC("yesterday"); err == nil {
		t.Error("expected parse error")
	}
}
