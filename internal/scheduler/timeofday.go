package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

const (
	minFloodMinutesDefault = 2.0
	maxFloodMinutesDefault = 15.0
	minOffMinutesDefault   = 5.0
	maxOffMinutesDefault   = 180.0
)

// TimeOfDayConfig is the time-of-day strategy's configuration. Plan is the
// literal cycle list; when a TimeOfDay is wrapped by Adaptive, the plan is
// supplied by the synthesizer instead (see adaptive.go).
type TimeOfDayConfig struct {
	Plan *cycle.SchedulePlan
}

// ClampToConstraints applies the flood/off bounds to a single cycle,
// returning the clamped cycle and whether any clamping occurred.
func ClampToConstraints(c cycle.Cycle) (cycle.Cycle, bool) {
	clamped := false
	if c.FloodMinutes < minFloodMinutesDefault {
		c.FloodMinutes = minFloodMinutesDefault
		clamped = true
	} else if c.FloodMinutes > maxFloodMinutesDefault {
		c.FloodMinutes = maxFloodMinutesDefault
		clamped = true
	}
	if c.OffMinutes < minOffMinutesDefault {
		c.OffMinutes = minOffMinutesDefault
		clamped = true
	} else if c.OffMinutes > maxOffMinutesDefault {
		c.OffMinutes = maxOffMinutesDefault
		clamped = true
	}
	if clamped {
		c.ClampDeviation = true
	}
	return c, clamped
}

// ClampPlan applies ClampToConstraints to every cycle of a plan.
func ClampPlan(plan *cycle.SchedulePlan) (*cycle.SchedulePlan, error) {
	cycles := plan.Cycles()
	for i, c := range cycles {
		cycles[i], _ = ClampToConstraints(c)
	}
	return cycle.NewPlan(cycles)
}

// TimeOfDay implements the fixed time-of-day strategy. It also serves as
// the execution engine for the adaptive strategy, which swaps the
// installed plan out from under it via SetPlan.
type TimeOfDay struct {
	ctrl   device.Controller
	clk    clock.Clock
	lg     *slog.Logger
	obs    Observer
	status *statusStore

	planPtr atomic.Pointer[cycle.SchedulePlan]

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	runCtx    context.Context
	done      chan struct{}
	running   atomic.Bool
}

// NewTimeOfDay validates cfg and builds a TimeOfDay strategy. cfg.Plan
// must be non-nil and non-empty.
func NewTimeOfDay(cfg TimeOfDayConfig, ctrl device.Controller, clk clock.Clock, lg *slog.Logger, obs Observer) (*TimeOfDay, error) {
	if cfg.Plan == nil || cfg.Plan.Len() == 0 {
		return nil, fmt.Errorf("scheduler: time-of-day strategy requires a non-empty cycle list")
	}
	clamped, err := ClampPlan(cfg.Plan)
	if err != nil {
		return nil, err
	}
	t := &TimeOfDay{
		ctrl:   ctrl,
		clk:    clk,
		lg:     lg,
		obs:    observerOrNoop(obs),
		status: newStatusStore(Status{State: cycle.StateStopped, LastTransition: clk.Now()}),
	}
	t.planPtr.Store(clamped)
	return t, nil
}

// SetPlan atomically installs a new plan. The running worker reads the plan
// each time it enters waiting, so a replan never reorders the events of the
// phase in progress; a plan installed while the worker is already waiting
// takes effect after the flood it has armed. Installing the same plan twice
// is a safe no-op.
func (t *TimeOfDay) SetPlan(plan *cycle.SchedulePlan) error {
	clamped, err := ClampPlan(plan)
	if err != nil {
		return err
	}
	t.planPtr.Store(clamped)
	return nil
}

func (t *TimeOfDay) currentPlan() *cycle.SchedulePlan { return t.planPtr.Load() }

func (t *TimeOfDay) Start(ctx context.Context) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	if t.running.Load() {
		return nil
	}
	// The worker's lifetime is owned by Stop, not by the caller's (possibly
	// request-scoped) context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.runCtx = runCtx
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running.Store(true)
	t.publishState(cycle.StateWaiting)
	go t.run(runCtx)
	return nil
}

func (t *TimeOfDay) Stop() {
	t.lifecycle.Lock()
	if !t.running.Load() {
		t.lifecycle.Unlock()
		return
	}
	cancel := t.cancel
	done := t.done
	t.lifecycle.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(GracefulShutdownBudget):
		t.lg.Warn("scheduler_stop_timed_out")
	}
}

func (t *TimeOfDay) IsRunning() bool             { return t.running.Load() }
func (t *TimeOfDay) State() cycle.SchedulerState { return t.status.load().State }
func (t *TimeOfDay) Status() Status              { return t.status.load() }

func (t *TimeOfDay) publishState(st cycle.SchedulerState) {
	cur := t.status.load()
	t.obs.Transition(cur.State, st)
	cur.State = st
	cur.Running = st != cycle.StateStopped
	cur.LastTransition = t.clk.Now()
	cur.DeviceState = deviceState(t.ctrl)

	period := st.String()
	cur.CurrentPeriod = &period

	if st == cycle.StateStopped {
		cur.NextOnTime = nil
		cur.TimeUntilNextCycle = nil
	} else {
		now := t.clk.Now()
		onTime := t.currentPlan().NextOnTime(todOf(now))
		onInstant := nextOccurrence(t.clk.Location(), onTime, now)
		until := onInstant.Sub(now)
		cur.NextOnTime = &onTime
		cur.TimeUntilNextCycle = &until
	}

	t.status.publish(cur)
}

func (t *TimeOfDay) run(ctx context.Context) {
	defer close(t.done)
	defer func() {
		finalOff(t.ctrl, t.lg)
		t.running.Store(false)
		t.publishState(cycle.StateStopped)
	}()

	// The plan is re-read at the top of every iteration, on entering waiting,
	// so a replan never reorders the phase in progress; one installed while
	// the worker is already waiting applies after the flood it has armed.
	// The next due cycle is always recomputed from "now", which is what makes
	// wall-clock jumps safe.
	var lastOnInstant time.Time
	for first := true; ; first = false {
		plan := t.currentPlan()
		now := t.clk.Now()

		// A cycle whose on_time equals the current minute is still due,
		// unless it is the one just executed. On a fresh Start it only counts
		// at the top of the second: a mid-minute on_time is "just past", and
		// the engine skips to the next on_time rather than begin a truncated
		// flood.
		from := todOf(now)
		if first {
			if now.Second() == 0 {
				from--
			}
		} else if !now.Truncate(time.Minute).Equal(lastOnInstant) {
			from--
		}
		onTime := plan.NextOnTime(from)
		onInstant := nextOccurrence(t.clk.Location(), onTime, now.Truncate(time.Minute))

		if !waitUntil(ctx, t.clk, onInstant) {
			return
		}
		if t.clk.Now().Sub(onInstant) >= time.Minute {
			// The clock jumped forward past the on_time while we slept: the
			// cycle is treated as missed, never run late (no catch-up bursts).
			t.lg.Warn("on_time_missed_after_clock_jump", "on_time", onTime.Format())
			continue
		}

		c, _ := plan.CycleAt(onTime)
		lastOnInstant = onInstant

		t.publishState(cycle.StateFlood)
		if err := commandDevice(context.Background(), t.ctrl, t.lg, t.obs, true); err != nil {
			t.lg.Error("timeofday_turn_on_failed", "error", err)
		}
		st := t.status.load()
		cc := c
		st.LastCycle = &cc
		t.status.publish(st)

		floodEnd := onInstant.Add(durationOfMinutes(c.FloodMinutes))
		if !waitUntil(ctx, t.clk, floodEnd) {
			return
		}

		t.publishState(cycle.StateDrain)
		if err := commandDevice(context.Background(), t.ctrl, t.lg, t.obs, false); err != nil {
			t.lg.Error("timeofday_turn_off_failed", "error", err)
		}

		// off_minutes is informational dwell: the engine reports "drain" for
		// up to off_minutes, but the real gate is always the next scheduled
		// on_time, which may arrive sooner when cycles are packed tighter
		// than the dwell suggests. Drain therefore ends at
		// min(floodEnd+off_minutes, next on_instant); off_minutes == 0 folds
		// into this as an instantaneous drain, never a divisor or error.
		nextFrom := todOf(floodEnd)
		if floodEnd.Second() == 0 {
			nextFrom--
		}
		nextOnTime := plan.NextOnTime(nextFrom)
		nextOnInstant := nextOccurrence(t.clk.Location(), nextOnTime, floodEnd.Truncate(time.Minute))
		drainEnd := floodEnd.Add(durationOfMinutes(c.OffMinutes))
		if drainEnd.After(nextOnInstant) {
			drainEnd = nextOnInstant
		}
		if !waitUntil(ctx, t.clk, drainEnd) {
			return
		}

		t.publishState(cycle.StateWaiting)
	}
}
