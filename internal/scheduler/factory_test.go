package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

func TestFactoryBuildsIntervalStrategy(t *testing.T) {
	cfg := FactoryConfig{Type: ScheduleInterval, Interval: IntervalConfig{FloodMinutes: 1, DrainMinutes: 1, IntervalMinutes: 5}}
	s, err := New(cfg, nil, device.NewFakeController(testLogger(), "pump"), clock.NewFake(time.Now(), time.UTC), testLogger(), nil)
	require.NoError(t, err)
	require.IsType(t, &Interval{}, s)
}

func TestFactoryBuildsTimeOfDayStrategy(t *testing.T) {
	plan := mustPlan(t, cycle.Cycle{OnTime: cycle.FromMinutes(60), FloodMinutes: 3, OffMinutes: 10})
	cfg := FactoryConfig{Type: ScheduleTimeBased, TimeOfDay: TimeOfDayConfig{Plan: plan}}
	s, err := New(cfg, nil, device.NewFakeController(testLogger(), "pump"), clock.NewFake(time.Now(), time.UTC), testLogger(), nil)
	require.NoError(t, err)
	require.IsType(t, &TimeOfDay{}, s)
}

func TestFactoryRejectsNFT(t *testing.T) {
	cfg := FactoryConfig{Type: ScheduleNFT}
	_, err := New(cfg, nil, device.NewFakeController(testLogger(), "pump"), clock.NewFake(time.Now(), time.UTC), testLogger(), nil)
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestFactoryRejectsAdaptiveWithoutEnvironment(t *testing.T) {
	cfg := FactoryConfig{Type: ScheduleTimeBased, AdaptiveEnabled: true}
	_, err := New(cfg, nil, device.NewFakeController(testLogger(), "pump"), clock.NewFake(time.Now(), time.UTC), testLogger(), nil)
	require.Error(t, err)
}
