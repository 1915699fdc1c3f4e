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

// ActiveHours restricts when new ON cycles may begin. Start may be greater
// than End, meaning the window wraps past midnight. A flood that begins
// inside the window runs to completion even if it extends past End.
type ActiveHours struct {
	Start cycle.TimeOfDay
	End   cycle.TimeOfDay
}

func (a ActiveHours) contains(t cycle.TimeOfDay) bool {
	if a.Start <= a.End {
		return t >= a.Start && t < a.End
	}
	return t >= a.Start || t < a.End
}

// IntervalConfig is the interval strategy's configuration.
type IntervalConfig struct {
	FloodMinutes    float64
	DrainMinutes    float64
	IntervalMinutes float64
	ActiveHours     *ActiveHours
}

func (c IntervalConfig) validate() error {
	if c.FloodMinutes <= 0 || c.DrainMinutes < 0 || c.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler: interval config must have positive flood/interval and non-negative drain minutes")
	}
	if c.IntervalMinutes < c.FloodMinutes+c.DrainMinutes {
		return fmt.Errorf("scheduler: interval_minutes (%v) must be >= flood+drain (%v)", c.IntervalMinutes, c.FloodMinutes+c.DrainMinutes)
	}
	return nil
}

// Interval implements the fixed-interval strategy.
type Interval struct {
	cfg    IntervalConfig
	ctrl   device.Controller
	clk    clock.Clock
	lg     *slog.Logger
	obs    Observer
	status *statusStore

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
}

// NewInterval validates cfg and builds an Interval strategy.
func NewInterval(cfg IntervalConfig, ctrl device.Controller, clk clock.Clock, lg *slog.Logger, obs Observer) (*Interval, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Interval{
		cfg:    cfg,
		ctrl:   ctrl,
		clk:    clk,
		lg:     lg,
		obs:    observerOrNoop(obs),
		status: newStatusStore(Status{State: cycle.StateStopped, LastTransition: clk.Now()}),
	}, nil
}

func (s *Interval) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.running.Load() {
		return nil // already running; never spawn a second worker
	}
	// The worker's lifetime is owned by Stop, not by the caller's (possibly
	// request-scoped) context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)
	next := s.firstOnInstant()
	s.publishState(cycle.StateWaiting, &next)
	go s.run(runCtx, next)
	return nil
}

func (s *Interval) Stop() {
	s.lifecycle.Lock()
	if !s.running.Load() {
		s.lifecycle.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.lifecycle.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(GracefulShutdownBudget):
		s.lg.Warn("scheduler_stop_timed_out")
	}
}

func (s *Interval) IsRunning() bool             { return s.running.Load() }
func (s *Interval) State() cycle.SchedulerState { return s.status.load().State }
func (s *Interval) Status() Status              { return s.status.load() }

// publishState transitions to st. target is the absolute instant of the
// next scheduled phase change (flood end, drain end, or the next on_instant
// while waiting); nil means "no further transition is scheduled" (stopped).
func (s *Interval) publishState(st cycle.SchedulerState, target *time.Time) {
	cur := s.status.load()
	s.obs.Transition(cur.State, st)
	cur.State = st
	cur.Running = st != cycle.StateStopped
	cur.LastTransition = s.clk.Now()
	cur.DeviceState = deviceState(s.ctrl)

	period := st.String()
	cur.CurrentPeriod = &period

	if target == nil {
		cur.NextOnTime = nil
		cur.TimeUntilNextCycle = nil
	} else {
		tod := todOf(*target)
		until := target.Sub(s.clk.Now())
		cur.NextOnTime = &tod
		cur.TimeUntilNextCycle = &until
	}

	s.status.publish(cur)
}

func (s *Interval) run(ctx context.Context, next time.Time) {
	defer close(s.done)
	defer func() {
		finalOff(s.ctrl, s.lg)
		s.running.Store(false)
		s.publishState(cycle.StateStopped, nil)
	}()

	for {
		if !waitUntil(ctx, s.clk, next) {
			return
		}
		intervalDur := durationOfMinutes(s.cfg.IntervalMinutes)
		if over := s.clk.Now().Sub(next); over >= intervalDur {
			// The clock jumped forward past one or more on-instants: skip the
			// missed cycles and realign to the interval grid (no catch-up
			// bursts).
			skipped := over / intervalDur
			s.lg.Warn("interval_cycles_missed_after_clock_jump", "skipped", int64(skipped))
			next = s.nextAllowedOnInstant(next.Add(intervalDur * skipped))
			s.publishState(cycle.StateWaiting, &next)
			continue
		}

		floodStart := s.clk.Now()
		floodEnd := floodStart.Add(durationOfMinutes(s.cfg.FloodMinutes))
		s.transitionFlood(floodStart, floodEnd)
		if !waitUntil(ctx, s.clk, floodEnd) {
			return
		}

		drainEnd := floodEnd.Add(durationOfMinutes(s.cfg.DrainMinutes))
		s.transitionDrain(drainEnd)
		if !waitUntil(ctx, s.clk, drainEnd) {
			return
		}

		waitMinutes := s.cfg.IntervalMinutes - s.cfg.FloodMinutes - s.cfg.DrainMinutes
		next = drainEnd.Add(durationOfMinutes(waitMinutes))
		next = s.nextAllowedOnInstant(next)
		s.publishState(cycle.StateWaiting, &next)
	}
}

func (s *Interval) transitionFlood(at, until time.Time) {
	s.publishState(cycle.StateFlood, &until)
	if err := commandDevice(context.Background(), s.ctrl, s.lg, s.obs, true); err != nil {
		s.lg.Error("interval_turn_on_failed", "error", err)
	}
	st := s.status.load()
	// off_minutes is the drain-plus-wait that follows the flood, not just
	// the wait segment.
	c := cycle.Cycle{OnTime: todOf(at), FloodMinutes: s.cfg.FloodMinutes, OffMinutes: s.cfg.IntervalMinutes - s.cfg.FloodMinutes}
	st.LastCycle = &c
	s.status.publish(st)
}

func (s *Interval) transitionDrain(until time.Time) {
	s.publishState(cycle.StateDrain, &until)
	if err := commandDevice(context.Background(), s.ctrl, s.lg, s.obs, false); err != nil {
		s.lg.Error("interval_turn_off_failed", "error", err)
	}
}

// firstOnInstant determines when the first ON cycle should occur: now, or
// the active-hours window start if "now" falls outside it.
func (s *Interval) firstOnInstant() time.Time {
	now := s.clk.Now()
	return s.nextAllowedOnInstant(now)
}

// nextAllowedOnInstant suppresses on-instants outside active_hours by
// jumping forward to the window start.
func (s *Interval) nextAllowedOnInstant(candidate time.Time) time.Time {
	if s.cfg.ActiveHours == nil {
		return candidate
	}
	if s.cfg.ActiveHours.contains(todOf(candidate)) {
		return candidate
	}
	return nextOccurrence(s.clk.Location(), s.cfg.ActiveHours.Start, candidate)
}

func durationOfMinutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
