package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Duds/hydro-automation/internal/adaptive"
	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/internal/environment"
)

// EnvironmentSource is the subset of environment.Service the adaptive
// strategy consumes. Declared locally so this package does not need to
// depend on environment's constructor surface.
type EnvironmentSource interface {
	View() environment.View
	Refresh(ctx context.Context) error
}

// Adaptive wraps a TimeOfDay execution engine, replacing its installed
// plan with freshly synthesized ones. The synthesizer itself (package
// adaptive) never sees this type or any prior plan; only the re-synthesis
// trigger lives here.
type Adaptive struct {
	*TimeOfDay

	cfg            adaptive.Config
	env            EnvironmentSource
	clk            clock.Clock
	lg             *slog.Logger
	resyncInterval time.Duration

	prevPlan    atomic.Pointer[cycle.SchedulePlan]
	validation  atomic.Pointer[adaptive.ValidationReport]
	loopRunning atomic.Bool
}

// NewAdaptive builds an Adaptive strategy. An initial synthesis is
// performed immediately so the wrapped TimeOfDay never starts with an
// empty plan.
func NewAdaptive(cfg adaptive.Config, env EnvironmentSource, ctrl device.Controller, clk clock.Clock, lg *slog.Logger, obs Observer, resyncInterval time.Duration) (*Adaptive, error) {
	if resyncInterval <= 0 {
		resyncInterval = 15 * time.Minute
	}
	a := &Adaptive{cfg: cfg, env: env, clk: clk, lg: lg, resyncInterval: resyncInterval}

	plan, err := a.synthesize()
	if err != nil {
		return nil, err
	}
	tod, err := NewTimeOfDay(TimeOfDayConfig{Plan: plan}, ctrl, clk, lg, obs)
	if err != nil {
		return nil, err
	}
	a.TimeOfDay = tod
	a.prevPlan.Store(plan)
	return a, nil
}

// Validation returns the comparison of the most recent synthesis against
// the one before it. It reports false until a second synthesis has
// occurred.
func (a *Adaptive) Validation() (adaptive.ValidationReport, bool) {
	p := a.validation.Load()
	if p == nil {
		return adaptive.ValidationReport{}, false
	}
	return *p, true
}

func (a *Adaptive) synthesize() (*cycle.SchedulePlan, error) {
	view := a.env.View()
	info := view.Daylight
	sample := adaptive.Sample{TemperatureC: view.TemperatureC, HumidityPct: view.HumidityPct}
	return adaptive.Synthesize(a.cfg, info, sample)
}

// Start begins the wrapped TimeOfDay worker and a background re-synthesis
// loop driven by the same cancellation token. A second Start while running
// is a no-op: neither the worker nor the loop is ever duplicated.
func (a *Adaptive) Start(ctx context.Context) error {
	if err := a.TimeOfDay.Start(ctx); err != nil {
		return err
	}
	if a.loopRunning.CompareAndSwap(false, true) {
		runCtx := a.TimeOfDay.runCtx
		// The first cadence tick is armed here, so the interval is measured
		// from Start rather than from whenever the goroutine is scheduled.
		tick := a.clk.After(a.resyncInterval)
		go func() {
			defer a.loopRunning.Store(false)
			a.resyncLoop(runCtx, tick)
		}()
	}
	return nil
}

// resyncLoop re-synthesizes on a fixed cadence (resyncInterval) only. A
// local-midnight crossing or a sample that moves into a new factor band
// does not trigger a re-synthesis of its own; it is picked up at the next
// cadence tick. It never interrupts an in-progress flood: SetPlan only
// changes the plan the TimeOfDay worker reads when it next enters waiting.
func (a *Adaptive) resyncLoop(ctx context.Context, tick <-chan time.Time) {
	lastDay := a.clk.Now().YearDay()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}
		tick = a.clk.After(a.resyncInterval)
		if !a.IsRunning() {
			return
		}
		if err := a.env.Refresh(ctx); err != nil {
			a.lg.Warn("adaptive_environment_refresh_failed", "error", err)
		}
		today := a.clk.Now().YearDay()
		crossedMidnight := today != lastDay
		lastDay = today

		plan, err := a.synthesize()
		if err != nil {
			a.lg.Error("adaptive_resynthesis_failed", "error", err)
			continue
		}
		if err := a.SetPlan(plan); err != nil {
			a.lg.Error("adaptive_plan_install_failed", "error", err)
			continue
		}
		if prev := a.prevPlan.Load(); prev != nil {
			report := adaptive.ValidateAgainst(plan, prev)
			a.validation.Store(&report)
		}
		a.prevPlan.Store(plan)
		a.obs.Resynthesized()
		if crossedMidnight {
			a.lg.Info("adaptive_resynthesis_midnight_crossing")
		}
	}
}
