package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

func mustPlan(t *testing.T, cycles ...cycle.Cycle) *cycle.SchedulePlan {
	t.Helper()
	p, err := cycle.NewPlan(cycles)
	require.NoError(t, err)
	return p
}

func TestTimeOfDayRejectsEmptyPlan(t *testing.T) {
	clk := clock.NewFake(time.Now(), time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	_, err := NewTimeOfDay(TimeOfDayConfig{Plan: nil}, ctrl, clk, testLogger(), nil)
	require.Error(t, err)
}

func TestTimeOfDayClampsOutOfBoundCycles(t *testing.T) {
	clk := clock.NewFake(time.Now(), time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	plan := mustPlan(t, cycle.Cycle{OnTime: cycle.FromMinutes(60), FloodMinutes: 1, OffMinutes: 400})
	tod, err := NewTimeOfDay(TimeOfDayConfig{Plan: plan}, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	c, _ := tod.currentPlan().CycleAt(cycle.FromMinutes(60))
	require.Equal(t, minFloodMinutesDefault, c.FloodMinutes)
	require.Equal(t, maxOffMinutesDefault, c.OffMinutes)
	require.True(t, c.ClampDeviation)
}

func TestTimeOfDayWrapsMidnight(t *testing.T) {
	start := time.Date(2026, 1, 1, 23, 57, 30, 0, time.UTC)
	clk := clock.NewFake(start, time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	plan := mustPlan(t,
		cycle.Cycle{OnTime: cycle.FromMinutes(23*60 + 58), FloodMinutes: 2, OffMinutes: 5},
		cycle.Cycle{OnTime: cycle.FromMinutes(3), FloodMinutes: 2, OffMinutes: 5},
	)
	tod, err := NewTimeOfDay(TimeOfDayConfig{Plan: plan}, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tod.Start(ctx))

	clk.Set(time.Date(2026, 1, 1, 23, 58, 0, 0, time.UTC))
	waitForState(t, tod, cycle.StateFlood)

	clk.Set(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	waitForState(t, tod, cycle.StateDrain)
	require.Equal(t, device.Off, ctrl.Snapshot().On)

	// off_minutes=5 on the first cycle would nominally hold drain until
	// 00:05, but the next cycle's on_time (00:03) governs: the device must
	// be back ON at 00:03 regardless.
	clk.Set(time.Date(2026, 1, 2, 0, 3, 0, 0, time.UTC))
	waitForState(t, tod, cycle.StateFlood)
	require.Equal(t, device.On, ctrl.Snapshot().On)
}

func TestTimeOfDayStatusReportsNextOnTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start, time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	plan := mustPlan(t, cycle.Cycle{OnTime: cycle.FromMinutes(6 * 60), FloodMinutes: 2, OffMinutes: 5})
	tod, err := NewTimeOfDay(TimeOfDayConfig{Plan: plan}, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tod.Start(ctx))

	st := tod.Status()
	require.NotNil(t, st.CurrentPeriod)
	require.Equal(t, "waiting", *st.CurrentPeriod)
	require.NotNil(t, st.NextOnTime)
	require.Equal(t, cycle.FromMinutes(6*60), *st.NextOnTime)
	require.NotNil(t, st.TimeUntilNextCycle)
	require.Equal(t, 6*time.Hour, *st.TimeUntilNextCycle)

	tod.Stop()
	st = tod.Status()
	require.Equal(t, "stopped", *st.CurrentPeriod)
	require.Nil(t, st.NextOnTime)
}

func TestTimeOfDaySetPlanSameTwiceIsNoop(t *testing.T) {
	clk := clock.NewFake(time.Now(), time.UTC)
	ctrl := device.NewFakeController(testLogger(), "pump")
	plan := mustPlan(t, cycle.Cycle{OnTime: cycle.FromMinutes(60), FloodMinutes: 3, OffMinutes: 10})
	tod, err := NewTimeOfDay(TimeOfDayConfig{Plan: plan}, ctrl, clk, testLogger(), nil)
	require.NoError(t, err)

	require.NoError(t, tod.SetPlan(plan))
	require.NoError(t, tod.SetPlan(plan))
	require.Equal(t, 1, tod.currentPlan().Len())
}
