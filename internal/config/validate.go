package config

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Duds/hydro-automation/internal/adaptive"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/scheduler"
)

// AdaptationSettings is the normalized subset of configuration needed to
// build the environmental collaborators (daylight.Calculator,
// weather.Provider, environment.Service). Nil on a *Normalized means
// adaptation is disabled entirely.
type AdaptationSettings struct {
	Postcode              string
	Timezone              string
	TemperatureEnabled    bool
	StationID             string
	WeatherUpdateInterval time.Duration
	ResyncInterval        time.Duration
}

// Normalized is the validated, ready-to-wire configuration Validate
// produces: every schema violation has already been checked, so callers
// building the scheduler from it do not need to re-check bounds.
type Normalized struct {
	PrimaryDevice DeviceConfig
	Devices       []DeviceConfig
	LogFile       string
	LogLevel      slog.Level
	MetricsBind   string
	MetricsOn     bool
	Factory       scheduler.FactoryConfig
	Adaptation    *AdaptationSettings
}

// Validate checks cfg against every schema and bounds rule and returns a
// Normalized configuration or a *ConfigurationError enumerating every
// violation found (not just the first).
func Validate(cfg *Config) (*Normalized, error) {
	var v []string
	addf := func(format string, args ...any) { v = append(v, fmt.Sprintf(format, args...)) }

	if len(cfg.Devices.Devices) == 0 {
		addf("devices.devices must contain at least one device")
	}
	var primary DeviceConfig
	havePrimary := false
	for _, d := range cfg.Devices.Devices {
		if d.DeviceID == cfg.GrowingSystem.PrimaryDeviceID {
			primary = d
			havePrimary = true
		}
	}
	if cfg.GrowingSystem.PrimaryDeviceID == "" {
		addf("growing_system.primary_device_id is required")
	} else if !havePrimary && len(cfg.Devices.Devices) > 0 {
		addf("growing_system.primary_device_id %q does not match any configured device", cfg.GrowingSystem.PrimaryDeviceID)
	}
	switch cfg.GrowingSystem.Type {
	case "", "flood_drain", "nft":
	default:
		addf("growing_system.type %q is not recognized", cfg.GrowingSystem.Type)
	}

	norm := &Normalized{
		PrimaryDevice: primary,
		Devices:       cfg.Devices.Devices,
		LogFile:       cfg.Logging.LogFile,
		LogLevel:      parseLevel(cfg.Logging.LogLevel),
		MetricsBind:   cfg.Metrics.Bind,
		MetricsOn:     cfg.Metrics.Enabled,
	}
	if norm.LogFile == "" {
		norm.LogFile = "./logs"
	}

	factory, adaptation, scheduleViolations := validateSchedule(cfg.Schedule)
	v = append(v, scheduleViolations...)
	norm.Factory = factory
	norm.Adaptation = adaptation

	if err := newConfigurationError(v); err != nil {
		return nil, err
	}
	return norm, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn", "WARNING", "warning":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func validateSchedule(s ScheduleConfig) (scheduler.FactoryConfig, *AdaptationSettings, []string) {
	var v []string
	addf := func(format string, args ...any) { v = append(v, fmt.Sprintf(format, args...)) }

	fc := scheduler.FactoryConfig{Type: scheduler.ScheduleType(s.Type)}

	adaptationEnabled := s.Adaptation != nil && s.Adaptation.Enabled
	adaptiveEnabled := adaptationEnabled && s.Adaptation.Adaptive != nil && s.Adaptation.Adaptive.Enabled

	switch s.Type {
	case "interval":
		ic := scheduler.IntervalConfig{
			FloodMinutes:    s.FloodMinutes,
			DrainMinutes:    s.DrainMinutes,
			IntervalMinutes: s.IntervalMinutes,
		}
		if s.FloodMinutes <= 0 {
			addf("schedule.flood_minutes must be positive")
		}
		if s.DrainMinutes < 0 {
			addf("schedule.drain_minutes must not be negative")
		}
		if s.IntervalMinutes <= 0 {
			addf("schedule.interval_minutes must be positive")
		}
		if s.IntervalMinutes > 0 && s.IntervalMinutes < s.FloodMinutes+s.DrainMinutes {
			addf("schedule.interval_minutes (%v) must be >= flood_minutes+drain_minutes (%v)", s.IntervalMinutes, s.FloodMinutes+s.DrainMinutes)
		}
		if s.ActiveHours != nil {
			start, err := cycle.Parse(s.ActiveHours.Start)
			if err != nil {
				addf("schedule.active_hours.start: %v", err)
			}
			end, err := cycle.Parse(s.ActiveHours.End)
			if err != nil {
				addf("schedule.active_hours.end: %v", err)
			}
			ic.ActiveHours = &scheduler.ActiveHours{Start: start, End: end}
		}
		fc.Interval = ic

	case "time_based":
		if s.FloodMinutes <= 0 {
			addf("schedule.flood_minutes must be positive")
		}
		if adaptationEnabled && adaptiveEnabled {
			if len(s.Cycles) > 0 {
				addf("schedule.cycles must not be supplied when schedule.adaptation.adaptive.enabled is true (the cycle list is synthesized)")
			}
			fc.AdaptiveEnabled = true
			adaptiveCfg, adaptiveViolations := buildAdaptiveConfig(s, s.Adaptation)
			v = append(v, adaptiveViolations...)
			fc.Adaptive = adaptiveCfg
			if s.Adaptation.Temperature != nil {
				fc.ResyncInterval = time.Duration(s.Adaptation.Temperature.UpdateIntervalMinutes) * time.Minute
			}
		} else {
			if len(s.Cycles) == 0 {
				addf("schedule.cycles must contain at least one cycle")
			}
			var cycles []cycle.Cycle
			seen := map[string]bool{}
			for _, c := range s.Cycles {
				if seen[c.OnTime] {
					addf("schedule.cycles contains duplicate on_time %q", c.OnTime)
				}
				seen[c.OnTime] = true
				tod, err := cycle.Parse(c.OnTime)
				if err != nil {
					addf("schedule.cycles[].on_time: %v", err)
					continue
				}
				cycles = append(cycles, cycle.Cycle{OnTime: tod, FloodMinutes: s.FloodMinutes, OffMinutes: c.OffMinutes})
			}
			if len(v) == 0 && len(cycles) > 0 {
				plan, err := cycle.NewPlan(cycles)
				if err != nil {
					addf("schedule.cycles: %v", err)
				} else {
					fc.TimeOfDay = scheduler.TimeOfDayConfig{Plan: plan}
				}
			}
		}

	case "nft":
		// The type is recognized, just unbuilt: validation accepts it and
		// lets the factory surface scheduler.ErrNotImplemented at
		// construction time.

	default:
		addf("schedule.type %q is not recognized (want interval, time_based, or nft)", s.Type)
	}

	var adaptation *AdaptationSettings
	if adaptationEnabled {
		if s.Adaptation.Location == nil || s.Adaptation.Location.Postcode == "" {
			addf("schedule.adaptation.location.postcode is required when adaptation is enabled")
		} else {
			adaptation = &AdaptationSettings{
				Postcode: s.Adaptation.Location.Postcode,
				Timezone: s.Adaptation.Location.Timezone,
			}
			if adaptation.Timezone == "" {
				adaptation.Timezone = "Australia/Sydney"
			}
			adaptation.StationID = "auto"
			adaptation.WeatherUpdateInterval = 60 * time.Minute
			if s.Adaptation.Temperature != nil {
				adaptation.TemperatureEnabled = s.Adaptation.Temperature.Enabled
				if s.Adaptation.Temperature.StationID != "" {
					adaptation.StationID = s.Adaptation.Temperature.StationID
				}
				if s.Adaptation.Temperature.UpdateIntervalMinutes > 0 {
					adaptation.WeatherUpdateInterval = time.Duration(s.Adaptation.Temperature.UpdateIntervalMinutes) * time.Minute
				}
			}
			adaptation.ResyncInterval = fc.ResyncInterval
		}
	}

	return fc, adaptation, v
}

// buildAdaptiveConfig converts the JSON adaptive-adaptation subtree into
// internal/adaptive.Config, falling back to the package defaults for any
// field left unconfigured.
func buildAdaptiveConfig(s ScheduleConfig, a *AdaptationConfig) (adaptive.Config, []string) {
	var v []string
	cfg := adaptive.Config{
		FloodMinutes:     s.FloodMinutes,
		TodFrequencies:   adaptive.DefaultTodFrequencies(),
		TemperatureBands: adaptive.DefaultTemperatureBands(),
		HumidityBands:    adaptive.DefaultHumidityBands(),
		Constraints:      adaptive.DefaultConstraints(),
	}
	if a == nil || a.Adaptive == nil {
		return cfg, v
	}
	ac := a.Adaptive
	if len(ac.TodFrequencies) > 0 {
		cfg.TodFrequencies = ac.TodFrequencies
	}
	if len(ac.TemperatureBands) > 0 {
		bands, err := bandsFromConfig(ac.TemperatureBands)
		if err != nil {
			v = append(v, fmt.Sprintf("schedule.adaptation.adaptive.temperature_bands: %v", err))
		} else {
			cfg.TemperatureBands = bands
		}
	}
	if len(ac.HumidityBands) > 0 {
		bands, err := bandsFromConfig(ac.HumidityBands)
		if err != nil {
			v = append(v, fmt.Sprintf("schedule.adaptation.adaptive.humidity_bands: %v", err))
		} else {
			cfg.HumidityBands = bands
		}
	}
	if ac.Constraints != nil {
		cfg.Constraints = adaptive.Constraints{
			MinWait:  ac.Constraints.MinWait,
			MaxWait:  ac.Constraints.MaxWait,
			MinFlood: ac.Constraints.MinFlood,
			MaxFlood: ac.Constraints.MaxFlood,
		}
	}
	if c := cfg.Constraints; c.MinWait <= 0 || c.MaxWait <= 0 || c.MinFlood <= 0 || c.MaxFlood <= 0 {
		v = append(v, "schedule.adaptation.adaptive.constraints values must all be positive")
	} else {
		if c.MinWait > c.MaxWait {
			v = append(v, fmt.Sprintf("schedule.adaptation.adaptive.constraints: min_wait (%v) must be <= max_wait (%v)", c.MinWait, c.MaxWait))
		}
		if c.MinFlood > c.MaxFlood {
			v = append(v, fmt.Sprintf("schedule.adaptation.adaptive.constraints: min_flood (%v) must be <= max_flood (%v)", c.MinFlood, c.MaxFlood))
		}
	}
	if a.Daylight != nil && len(a.Daylight.PeriodFactors) > 0 {
		cfg.PeriodFactors = a.Daylight.PeriodFactors
	}
	if err := adaptive.ValidateBands(cfg.TemperatureBands); err != nil {
		v = append(v, err.Error())
	}
	if err := adaptive.ValidateBands(cfg.HumidityBands); err != nil {
		v = append(v, err.Error())
	}
	return cfg, v
}

// bandsFromConfig converts a name->BandConfig map into the ordered []Band
// slice adaptive.factorFor scans. Order matters (first match wins on an
// overlapping boundary), so bands are sorted by their lower bound, with
// open-low bands (Min == nil) first.
func bandsFromConfig(m map[string]BandConfig) ([]adaptive.Band, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		bi, bj := m[names[i]], m[names[j]]
		if bi.Min == nil {
			return true
		}
		if bj.Min == nil {
			return false
		}
		return *bi.Min < *bj.Min
	})
	bands := make([]adaptive.Band, 0, len(m))
	for _, name := range names {
		b := m[name]
		if b.Factor <= 0 {
			return nil, fmt.Errorf("band %q has non-positive factor %v", name, b.Factor)
		}
		bands = append(bands, adaptive.Band{Name: name, Min: b.Min, Max: b.Max, Factor: b.Factor})
	}
	return bands, nil
}
