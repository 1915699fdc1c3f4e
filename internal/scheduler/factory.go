package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Duds/hydro-automation/internal/adaptive"
	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/device"
)

// ScheduleType names the recognized schedule.type configuration values.
type ScheduleType string

const (
	ScheduleInterval  ScheduleType = "interval"
	ScheduleTimeBased ScheduleType = "time_based"
	ScheduleNFT       ScheduleType = "nft"
)

// FactoryConfig is the validated, strategy-agnostic configuration the
// factory consumes. Exactly one of Interval/TimeOfDay is read, selected by
// Type; Adaptive is additionally read when AdaptiveEnabled is true and
// Type is time_based.
type FactoryConfig struct {
	Type            ScheduleType
	Interval        IntervalConfig
	TimeOfDay       TimeOfDayConfig
	AdaptiveEnabled bool
	Adaptive        adaptive.Config
	ResyncInterval  time.Duration
}

// New selects and constructs a Scheduler from cfg. It never partially
// constructs a scheduler: any validation failure anywhere in the selected
// path returns before any goroutine is started.
func New(cfg FactoryConfig, env EnvironmentSource, ctrl device.Controller, clk clock.Clock, lg *slog.Logger, obs Observer) (Scheduler, error) {
	switch cfg.Type {
	case ScheduleInterval:
		return NewInterval(cfg.Interval, ctrl, clk, lg, obs)
	case ScheduleTimeBased:
		if cfg.AdaptiveEnabled {
			if env == nil {
				return nil, fmt.Errorf("scheduler: adaptive schedule requires an environmental service")
			}
			return NewAdaptive(cfg.Adaptive, env, ctrl, clk, lg, obs, cfg.ResyncInterval)
		}
		return NewTimeOfDay(cfg.TimeOfDay, ctrl, clk, lg, obs)
	case ScheduleNFT:
		return nil, fmt.Errorf("%w: growing_system/schedule type %q", ErrNotImplemented, cfg.Type)
	default:
		return nil, fmt.Errorf("scheduler: unrecognized schedule type %q", cfg.Type)
	}
}
