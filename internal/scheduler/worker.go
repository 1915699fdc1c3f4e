package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

// defaultPollInterval is how often a worker re-evaluates "has the next
// deadline passed" against the clock. The engine polls rather than arming
// a single precomputed timer so that clock jumps (forward or backward) are
// observed naturally on the next tick.
const defaultPollInterval = 1 * time.Second

// todOf extracts the local time-of-day component of an absolute instant.
func todOf(t time.Time) cycle.TimeOfDay {
	return cycle.TimeOfDay(t.Hour()*60 + t.Minute())
}

// nextOccurrence returns the next absolute instant, at or after "from",
// whose local time-of-day equals tod.
func nextOccurrence(loc *time.Location, tod cycle.TimeOfDay, from time.Time) time.Time {
	from = from.In(loc)
	candidate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc).
		Add(time.Duration(tod.Minutes()) * time.Minute)
	if candidate.Before(from) {
		candidate = candidate.Add(24 * time.Hour)
	}
	return candidate
}

// waitUntil blocks, polling clk, until target has passed or ctx is done.
// It returns false if ctx ended the wait early.
func waitUntil(ctx context.Context, clk clock.Clock, target time.Time) bool {
	for {
		if !clk.Now().Before(target) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-clk.After(defaultPollInterval):
		}
	}
}

// commandDevice issues TurnOn/TurnOff and reports the outcome to the
// observer. A non-nil error means the device's own retry budget was
// exhausted without verifying the requested state.
func commandDevice(ctx context.Context, ctrl device.Controller, lg *slog.Logger, obs Observer, on bool) error {
	var err error
	if on {
		err = ctrl.TurnOn(ctx)
	} else {
		err = ctrl.TurnOff(ctx)
	}
	if err != nil {
		lg.Error("device_command_failed", "requested_on", on, "error", err)
		observerOrNoop(obs).DeviceCommandRetried()
		return err
	}
	return nil
}

// finalOff is used by Stop: it always issues TurnOff, bounded by
// GracefulShutdownBudget, regardless of current phase or reachability, so
// the pump is never left running past a shutdown.
func finalOff(ctrl device.Controller, lg *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownBudget)
	defer cancel()
	if err := ctrl.TurnOff(ctx); err != nil {
		lg.Warn("shutdown_off_command_failed", "error", err)
	}
}

func deviceState(ctrl device.Controller) device.TriState {
	return ctrl.Snapshot().On
}
