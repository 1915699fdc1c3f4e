// Package config loads the daemon's nested JSON configuration and
// validates it with an explicit Validate function that accumulates every
// violation it finds rather than failing on the first.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DeviceConfig identifies one physical actuator.
type DeviceConfig struct {
	DeviceID      string            `json:"device_id"`
	Name          string            `json:"name"`
	Brand         string            `json:"brand"`
	Type          string            `json:"type"`
	Address       string            `json:"address"`
	Credentials   map[string]string `json:"credentials,omitempty"`
	AutoDiscovery bool              `json:"auto_discovery"`
}

// DevicesConfig is the devices section of the configuration file.
type DevicesConfig struct {
	Devices []DeviceConfig `json:"devices"`
}

// GrowingSystemConfig selects which device drives the tray.
type GrowingSystemConfig struct {
	Type            string `json:"type"` // flood_drain | nft
	PrimaryDeviceID string `json:"primary_device_id"`
}

// ActiveHoursConfig restricts interval cycles to a daily window.
type ActiveHoursConfig struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CycleConfig is one literal time-of-day cycle.
type CycleConfig struct {
	OnTime     string  `json:"on_time"`
	OffMinutes float64 `json:"off_minutes"`
}

// LocationConfig identifies where the environmental inputs are computed
// for.
type LocationConfig struct {
	Postcode string `json:"postcode"`
	Timezone string `json:"timezone"`
}

// TemperatureAdaptationConfig controls the weather half of adaptation.
type TemperatureAdaptationConfig struct {
	Enabled               bool   `json:"enabled"`
	Source                string `json:"source"`
	StationID             string `json:"station_id"`
	UpdateIntervalMinutes int    `json:"update_interval_minutes"`
}

// DaylightAdaptationConfig controls the daylight half of adaptation.
type DaylightAdaptationConfig struct {
	Enabled       bool               `json:"enabled"`
	ShiftSchedule bool               `json:"shift_schedule"`
	PeriodFactors map[string]float64 `json:"period_factors,omitempty"`
}

// BandConfig is one temperature/humidity band. Together the bands must
// partition the real line, and every factor must be positive.
type BandConfig struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Factor float64  `json:"factor"`
}

// ConstraintsConfig bounds the synthesizer's output durations.
type ConstraintsConfig struct {
	MinWait  float64 `json:"min_wait"`
	MaxWait  float64 `json:"max_wait"`
	MinFlood float64 `json:"min_flood"`
	MaxFlood float64 `json:"max_flood"`
}

// AdaptiveAdaptationConfig is the synthesizer's own configuration.
type AdaptiveAdaptationConfig struct {
	Enabled          bool                  `json:"enabled"`
	TodFrequencies   map[string]float64    `json:"tod_frequencies,omitempty"`
	TemperatureBands map[string]BandConfig `json:"temperature_bands,omitempty"`
	HumidityBands    map[string]BandConfig `json:"humidity_bands,omitempty"`
	Constraints      *ConstraintsConfig    `json:"constraints,omitempty"`
}

// AdaptationConfig is the adaptation subtree of a time_based schedule.
type AdaptationConfig struct {
	Enabled     bool                         `json:"enabled"`
	Location    *LocationConfig              `json:"location,omitempty"`
	Temperature *TemperatureAdaptationConfig `json:"temperature,omitempty"`
	Daylight    *DaylightAdaptationConfig    `json:"daylight,omitempty"`
	Adaptive    *AdaptiveAdaptationConfig    `json:"adaptive,omitempty"`
}

// ScheduleConfig is the schedule section; its fields are a union of the
// interval and time_based shapes, discriminated by Type.
type ScheduleConfig struct {
	Type            string             `json:"type"` // interval | time_based | nft
	FloodMinutes    float64            `json:"flood_minutes"`
	DrainMinutes    float64            `json:"drain_minutes,omitempty"`
	IntervalMinutes float64            `json:"interval_minutes,omitempty"`
	ActiveHours     *ActiveHoursConfig `json:"active_hours,omitempty"`
	Cycles          []CycleConfig      `json:"cycles,omitempty"`
	Adaptation      *AdaptationConfig  `json:"adaptation,omitempty"`
}

// LoggingConfig controls the process log sink.
type LoggingConfig struct {
	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`
}

// MetricsConfig controls the optional Prometheus sink.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Bind    string `json:"bind"`
}

// Config is the root of the JSON configuration document.
type Config struct {
	Devices       DevicesConfig       `json:"devices"`
	GrowingSystem GrowingSystemConfig `json:"growing_system"`
	Schedule      ScheduleConfig      `json:"schedule"`
	Logging       LoggingConfig       `json:"logging"`
	Metrics       MetricsConfig       `json:"metrics"`
}

// Load reads and JSON-decodes the configuration file at path. It performs
// no validation; call Validate on the result before using it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
	}
	return &cfg, nil
}
