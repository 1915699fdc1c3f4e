// Package scheduler implements the unified scheduler contract and its
// three strategies: interval, time-of-day, and adaptive (which wraps the
// time-of-day engine around a synthesizer). Each strategy runs one worker
// goroutine that owns the device and the plan cursor; status is published
// through an atomic snapshot so readers never block on the worker.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

// ErrNotImplemented is returned by the factory for strategies with no
// implementation (schedule.type = "nft").
var ErrNotImplemented = errors.New("scheduler: strategy not implemented")

// ErrShuttingDown is the error control requests receive once shutdown has
// begun. The strategies in this package never return it themselves; the
// HTTP binding in internal/api does.
var ErrShuttingDown = errors.New("scheduler: shutting down")

// GracefulShutdownBudget bounds how long Stop waits for the final OFF
// command to verify before returning (with a warning) anyway.
const GracefulShutdownBudget = 10 * time.Second

// Scheduler is the common contract every strategy implements.
type Scheduler interface {
	// Start begins execution. Calling Start while already running is a
	// no-op that returns nil; a worker is never duplicated.
	Start(ctx context.Context) error
	// Stop requests termination, commands the device OFF, and waits for
	// the worker to exit (bounded by GracefulShutdownBudget). Idempotent.
	Stop()
	IsRunning() bool
	State() cycle.SchedulerState
	Status() Status
}

// Status is the point-in-time snapshot returned by Status(), safe to read
// concurrently with the worker.
type Status struct {
	Running            bool
	State              cycle.SchedulerState
	NextOnTime         *cycle.TimeOfDay
	TimeUntilNextCycle *time.Duration
	CurrentPeriod      *string
	LastCycle          *cycle.Cycle
	DeviceState        device.TriState
	LastTransition     time.Time
}

// Observer receives lifecycle events for ambient observability (metrics,
// extra logging). A nil Observer is valid; every method must tolerate it.
// Kept as an interface here, implemented by internal/metrics, so this
// package never imports the metrics package.
type Observer interface {
	Transition(from, to cycle.SchedulerState)
	DeviceCommandRetried()
	Resynthesized()
}

type noopObserver struct{}

func (noopObserver) Transition(from, to cycle.SchedulerState) {}
func (noopObserver) DeviceCommandRetried()                    {}
func (noopObserver) Resynthesized()                           {}

func observerOrNoop(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}
