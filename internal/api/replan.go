package api

import (
	"errors"

	"github.com/Duds/hydro-automation/internal/cycle"
)

// errStrategyNotReplannable is returned by POST /control/replan when the
// active strategy has no installed plan to swap (the interval strategy
// computes cycles algorithmically and never implements Replanner).
var errStrategyNotReplannable = errors.New("api: active strategy does not accept a replan")

// buildPlanFromRequest turns a replanRequest into a cycle.SchedulePlan,
// reusing cycle.Parse/NewPlan for the same validation the config loader
// applies to a schedule.cycles list.
func buildPlanFromRequest(req replanRequest) (*cycle.SchedulePlan, error) {
	if len(req.Cycles) == 0 {
		return nil, errors.New("api: replan request must contain at least one cycle")
	}
	cycles := make([]cycle.Cycle, 0, len(req.Cycles))
	for _, c := range req.Cycles {
		onTime, err := cycle.Parse(c.OnTime)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle.Cycle{
			OnTime:       onTime,
			FloodMinutes: req.FloodMinutes,
			OffMinutes:   c.OffMinutes,
		})
	}
	return cycle.NewPlan(cycles)
}
