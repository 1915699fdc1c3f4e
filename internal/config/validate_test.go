package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		Devices: DevicesConfig{Devices: []DeviceConfig{
			{DeviceID: "pump-1", Name: "Flood pump", Address: "pump-1"},
		}},
		GrowingSystem: GrowingSystemConfig{Type: "flood_drain", PrimaryDeviceID: "pump-1"},
		Schedule: ScheduleConfig{
			Type:            "interval",
			FloodMinutes:    5,
			DrainMinutes:    5,
			IntervalMinutes: 30,
		},
	}
}

func TestValidateAcceptsMinimalIntervalConfig(t *testing.T) {
	norm, err := Validate(baseConfig())
	require.NoError(t, err)
	require.Equal(t, "pump-1", norm.PrimaryDevice.DeviceID)
	require.Equal(t, "./logs", norm.LogFile)
}

func TestValidateRejectsUnknownPrimaryDevice(t *testing.T) {
	cfg := baseConfig()
	cfg.GrowingSystem.PrimaryDeviceID = "does-not-exist"
	_, err := Validate(cfg)
	require.Error(t, err)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Violations, 1)
}

func TestValidateAccumulatesMultipleViolations(t *testing.T) {
	cfg := baseConfig()
	cfg.Devices.Devices = nil
	cfg.GrowingSystem.PrimaryDeviceID = ""
	cfg.Schedule.FloodMinutes = -1
	cfg.Schedule.IntervalMinutes = 0

	_, err := Validate(cfg)
	require.Error(t, err)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	require.GreaterOrEqual(t, len(cerr.Violations), 4)
}

func TestValidateIntervalRejectsTooShortInterval(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule.IntervalMinutes = 5 // < flood(5)+drain(5)
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateTimeBasedRejectsEmptyCycles(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{Type: "time_based", FloodMinutes: 5}
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateTimeBasedAcceptsLiteralCycles(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{
		Type:         "time_based",
		FloodMinutes: 5,
		Cycles: []CycleConfig{
			{OnTime: "06:00", OffMinutes: 30},
			{OnTime: "18:00", OffMinutes: 60},
		},
	}
	norm, err := Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, 2, norm.Factory.TimeOfDay.Plan.Len())
}

func TestValidateTimeBasedRejectsDuplicateCycleOnTime(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{
		Type:         "time_based",
		FloodMinutes: 5,
		Cycles: []CycleConfig{
			{OnTime: "06:00", OffMinutes: 30},
			{OnTime: "06:00", OffMinutes: 60},
		},
	}
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateAdaptiveRejectsCyclesAlongsideAdaptive(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{
		Type:         "time_based",
		FloodMinutes: 5,
		Cycles:       []CycleConfig{{OnTime: "06:00", OffMinutes: 30}},
		Adaptation: &AdaptationConfig{
			Enabled:  true,
			Location: &LocationConfig{Postcode: "2000"},
			Adaptive: &AdaptiveAdaptationConfig{Enabled: true},
		},
	}
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateAdaptiveRequiresPostcode(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{
		Type:         "time_based",
		FloodMinutes: 5,
		Adaptation: &AdaptationConfig{
			Enabled:  true,
			Adaptive: &AdaptiveAdaptationConfig{Enabled: true},
		},
	}
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateAdaptiveBuildsDefaultsWhenUnconfigured(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{
		Type:         "time_based",
		FloodMinutes: 5,
		Adaptation: &AdaptationConfig{
			Enabled:  true,
			Location: &LocationConfig{Postcode: "2000"},
			Adaptive: &AdaptiveAdaptationConfig{Enabled: true},
		},
	}
	norm, err := Validate(cfg)
	require.NoError(t, err)
	require.True(t, norm.Factory.AdaptiveEnabled)
	require.NotEmpty(t, norm.Factory.Adaptive.TemperatureBands)
	require.Equal(t, "Australia/Sydney", norm.Adaptation.Timezone)
	require.Equal(t, "auto", norm.Adaptation.StationID)
}

func TestValidateRejectsNFTAtValidationTimeOnlyAsUnimplementedLater(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule = ScheduleConfig{Type: "nft"}
	norm, err := Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, "nft", string(norm.Factory.Type))
}

func TestValidateRejectsUnknownScheduleType(t *testing.T) {
	cfg := baseConfig()
	cfg.Schedule.Type = "bogus"
	_, err := Validate(cfg)
	require.Error(t, err)
}
