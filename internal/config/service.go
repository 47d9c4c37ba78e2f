package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/track.report/internal/detect"
	"github.com/banshee-data/track.report/internal/failover"
	"github.com/banshee-data/track.report/internal/timeutil"
)

// DefaultConfigPath is the path to the canonical service defaults file.
const DefaultConfigPath = "config/service.defaults.json"

// ServiceConfig is the root service configuration. Every field is optional;
// the Get* accessors supply defaults for anything the file leaves out.
type ServiceConfig struct {
	Listen *string `json:"listen,omitempty"`
	DBPath *string `json:"db_path,omitempty"`

	// Timezone is the civil zone local times are rendered in.
	Timezone *string `json:"timezone,omitempty"`
	// HostTimezone is the zone naive wall-clock readings are taken in.
	// "Local" means the process zone.
	HostTimezone *string `json:"host_timezone,omitempty"`

	Debug  *bool   `json:"debug,omitempty"`
	TmpDir *string `json:"tmp_dir,omitempty"`

	RelayTimeout *string        `json:"relay_timeout,omitempty"` // duration string like "10s"
	Balance      *BalanceConfig `json:"balance,omitempty"`

	Detection *DetectionConfig `json:"detection,omitempty"`
}

// BalanceConfig lists the peers balanced requests are relayed to. Peers are
// either every port of Host, or an explicit list, or both.
type BalanceConfig struct {
	Enabled bool            `json:"enabled"`
	Host    string          `json:"host,omitempty"`
	Ports   []int           `json:"ports,omitempty"`
	Peers   []failover.Peer `json:"peers,omitempty"`
}

// DetectionConfig tunes the reference event detector.
type DetectionConfig struct {
	RefillLiters    *float64 `json:"refill_liters,omitempty"`
	DrainLiters     *float64 `json:"drain_liters,omitempty"`
	ParkingSpeed    *float64 `json:"parking_speed,omitempty"`
	ParkingMinSec   *int64   `json:"parking_min_sec,omitempty"`
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`
}

// LoadServiceConfig loads a ServiceConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ServiceConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *ServiceConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadServiceConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *ServiceConfig) Validate() error {
	if c.Timezone != nil && !timeutil.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("invalid timezone %q", *c.Timezone)
	}
	if c.HostTimezone != nil && *c.HostTimezone != "Local" && !timeutil.IsTimezoneValid(*c.HostTimezone) {
		return fmt.Errorf("invalid host_timezone %q", *c.HostTimezone)
	}

	if c.RelayTimeout != nil && *c.RelayTimeout != "" {
		d, err := time.ParseDuration(*c.RelayTimeout)
		if err != nil {
			return fmt.Errorf("invalid relay_timeout '%s': %w", *c.RelayTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("relay_timeout must be positive, got %s", d)
		}
	}

	if b := c.Balance; b != nil {
		for _, p := range b.Ports {
			if p < 1 || p > 65535 {
				return fmt.Errorf("balance port %d out of range", p)
			}
		}
		if len(b.Ports) > 0 && b.Host == "" {
			return fmt.Errorf("balance.host is required when balance.ports is set")
		}
		for _, p := range b.Peers {
			if p.Host == "" || p.Port < 1 || p.Port > 65535 {
				return fmt.Errorf("invalid balance peer %q", p.String())
			}
		}
		if b.Enabled && len(c.GetBalance().Peers) == 0 {
			return fmt.Errorf("balance is enabled but no peers are configured")
		}
	}

	if d := c.Detection; d != nil {
		if d.SmoothingWindow != nil && *d.SmoothingWindow < 1 {
			return fmt.Errorf("smoothing_window must be at least 1, got %d", *d.SmoothingWindow)
		}
		if d.ParkingMinSec != nil && *d.ParkingMinSec < 0 {
			return fmt.Errorf("parking_min_sec must be non-negative, got %d", *d.ParkingMinSec)
		}
	}
	return nil
}

// GetListen returns the listen address or the default.
func (c *ServiceConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetDBPath returns the database path or the default.
func (c *ServiceConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "track.db"
	}
	return *c.DBPath
}

// GetTimezone returns the civil zone name or the default.
func (c *ServiceConfig) GetTimezone() string {
	if c.Timezone == nil || *c.Timezone == "" {
		return timeutil.DefaultCivilZone
	}
	return *c.Timezone
}

// GetHostTimezone returns the host zone name or "Local".
func (c *ServiceConfig) GetHostTimezone() string {
	if c.HostTimezone == nil || *c.HostTimezone == "" {
		return "Local"
	}
	return *c.HostTimezone
}

// GetDebug returns the debug flag or the default.
func (c *ServiceConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}

// GetTmpDir returns the diagnostic artifact directory or the system temp
// directory.
func (c *ServiceConfig) GetTmpDir() string {
	if c.TmpDir == nil || *c.TmpDir == "" {
		return os.TempDir()
	}
	return *c.TmpDir
}

// GetRelayTimeout returns the failover relay timeout or the default.
func (c *ServiceConfig) GetRelayTimeout() time.Duration {
	if c.RelayTimeout == nil || *c.RelayTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.RelayTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetBalance expands the balance section into a failover configuration.
func (c *ServiceConfig) GetBalance() failover.Config {
	if c.Balance == nil {
		return failover.Config{}
	}
	out := failover.Config{Enabled: c.Balance.Enabled}
	for _, port := range c.Balance.Ports {
		out.Peers = append(out.Peers, failover.Peer{Host: c.Balance.Host, Port: port})
	}
	out.Peers = append(out.Peers, c.Balance.Peers...)
	return out
}

// GetThresholds returns the detector thresholds, defaulting every field
// the file leaves out.
func (c *ServiceConfig) GetThresholds() detect.Thresholds {
	th := detect.DefaultThresholds()
	d := c.Detection
	if d == nil {
		return th
	}
	if d.RefillLiters != nil {
		th.RefillLiters = *d.RefillLiters
	}
	if d.DrainLiters != nil {
		th.DrainLiters = *d.DrainLiters
	}
	if d.ParkingSpeed != nil {
		th.ParkingSpeed = *d.ParkingSpeed
	}
	if d.ParkingMinSec != nil {
		th.ParkingMinSec = *d.ParkingMinSec
	}
	if d.SmoothingWindow != nil {
		th.SmoothingWindow = *d.SmoothingWindow
	}
	return th
}
