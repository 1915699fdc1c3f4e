package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForState(t *testing.T, s Scheduler, want cycle.SchedulerState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == want
	}, time.Second, time.Millisecond)
}

func TestIntervalRejectsShortInterval(t *testing.T) {
	cfg := IntervalConfig{FloodMinutes: 3, DrainMinutes: 2, IntervalMinutes: 4}
	_, err := NewInterval(cfg, device.NewFakeController(testLogger(), "pump"), clock.NewFake(time.Now(), time.UTC), testLogger(), nil)
	require.Error(t, err)
}

func TestIntervalBasicCycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start, time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	cfg := IntervalConfig{FloodMinutes: 1, DrainMinutes: 2, IntervalMinutes: 4}
	s, err := NewInterval(cfg, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	waitForState(t, s, cycle.StateFlood)
	require.Equal(t, device.On, ctrl.Snapshot().On)

	clk.Advance(1 * time.Minute)
	waitForState(t, s, cycle.StateDrain)
	require.Equal(t, device.Off, ctrl.Snapshot().On)

	clk.Advance(2 * time.Minute)
	waitForState(t, s, cycle.StateWaiting)

	clk.Advance(1 * time.Minute)
	waitForState(t, s, cycle.StateFlood)
}

func TestIntervalStatusReportsNextOnTimeAndCountdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start, time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	cfg := IntervalConfig{FloodMinutes: 1, DrainMinutes: 2, IntervalMinutes: 4}
	s, err := NewInterval(cfg, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	st := s.Status()
	require.Nil(t, st.CurrentPeriod) // never started: no transition has been published yet
	require.Nil(t, st.NextOnTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	st = s.Status()
	require.NotNil(t, st.CurrentPeriod)
	require.Equal(t, "waiting", *st.CurrentPeriod)
	require.NotNil(t, st.NextOnTime)
	require.NotNil(t, st.TimeUntilNextCycle)

	waitForState(t, s, cycle.StateFlood)
	st = s.Status()
	require.Equal(t, "flood", *st.CurrentPeriod)
	require.NotNil(t, st.TimeUntilNextCycle)

	s.Stop()
	st = s.Status()
	require.Equal(t, "stopped", *st.CurrentPeriod)
	require.Nil(t, st.NextOnTime)
	require.Nil(t, st.TimeUntilNextCycle)
}

func TestIntervalStartIsIdempotent(t *testing.T) {
	clk := clock.NewFake(time.Now(), time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	cfg := IntervalConfig{FloodMinutes: 1, DrainMinutes: 1, IntervalMinutes: 5}
	s, err := NewInterval(cfg, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	require.True(t, s.IsRunning())
}

func TestIntervalStopAlwaysCommandsOff(t *testing.T) {
	clk := clock.NewFake(time.Now(), time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	cfg := IntervalConfig{FloodMinutes: 5, DrainMinutes: 5, IntervalMinutes: 20}
	s, err := NewInterval(cfg, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	waitForState(t, s, cycle.StateFlood)
	require.Equal(t, device.On, ctrl.Snapshot().On)

	s.Stop()
	require.Equal(t, device.Off, ctrl.Snapshot().On)
	require.False(t, s.IsRunning())
}

func TestIntervalActiveHoursSuppressesOutOfWindowCycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start, time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	hours := ActiveHours{Start: cycle.TimeOfDay(5 * 60), End: cycle.TimeOfDay(10 * 60)}
	cfg := IntervalConfig{FloodMinutes: 1, DrainMinutes: 2, IntervalMinutes: 4, ActiveHours: &hours}
	s, err := NewInterval(cfg, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	require.Never(t, func() bool {
		return s.State() == cycle.StateFlood
	}, 50*time.Millisecond, 5*time.Millisecond)

	clk.Set(start.Add(5 * time.Hour))
	waitForState(t, s, cycle.StateFlood)
}
