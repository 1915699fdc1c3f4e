package adaptive

import (
	"fmt"
	"math"

	"github.com/Duds/hydro-automation/internal/cycle"
)

// Deviation records one synthesized cycle whose off_minutes differs from
// the nearest reference cycle's by more than 50%. It is produced purely for
// observability — nothing in the synthesizer or the scheduler consults it.
type Deviation struct {
	OnTime                string
	ReferenceOffMinutes   float64
	SynthesizedOffMinutes float64
	PercentDelta          float64
}

// ValidationReport summarizes how a synthesized plan compares to a
// reference plan (e.g. yesterday's synthesized plan, or a fixed baseline
// an operator wants to track drift against). This is an analytic-only
// comparison: it is never an input to Synthesize.
type ValidationReport struct {
	Matches    int
	Deviations []Deviation
	Warnings   []string
}

// ValidateAgainst compares each cycle of plan against the reference cycle
// nearest to it by on_time. A cycle whose off_minutes is within 50% of its
// nearest reference counts as a match; anything further is a deviation.
func ValidateAgainst(plan, reference *cycle.SchedulePlan) ValidationReport {
	var report ValidationReport
	if plan.Len() == 0 {
		report.Warnings = append(report.Warnings, "synthesized plan is empty")
		return report
	}
	if reference.Len() == 0 {
		report.Warnings = append(report.Warnings, "no reference plan to compare against")
		return report
	}
	if plan.Len() != reference.Len() {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("cycle count differs: %d synthesized vs %d reference", plan.Len(), reference.Len()))
	}

	refCycles := reference.Cycles()
	for _, pc := range plan.Cycles() {
		rc := nearestByOnTime(refCycles, pc.OnTime)
		if rc.OffMinutes == 0 {
			if pc.OffMinutes == 0 {
				report.Matches++
			} else {
				report.Deviations = append(report.Deviations, Deviation{
					OnTime:                pc.OnTime.Format(),
					ReferenceOffMinutes:   0,
					SynthesizedOffMinutes: pc.OffMinutes,
					PercentDelta:          math.Inf(1),
				})
			}
			continue
		}
		delta := (pc.OffMinutes - rc.OffMinutes) / rc.OffMinutes * 100
		if math.Abs(delta) > 50 {
			report.Deviations = append(report.Deviations, Deviation{
				OnTime:                pc.OnTime.Format(),
				ReferenceOffMinutes:   rc.OffMinutes,
				SynthesizedOffMinutes: pc.OffMinutes,
				PercentDelta:          delta,
			})
		} else {
			report.Matches++
		}
	}
	return report
}

// nearestByOnTime picks the reference cycle with the smallest circular
// on_time distance to t; ties go to the earlier cycle.
func nearestByOnTime(cycles []cycle.Cycle, t cycle.TimeOfDay) cycle.Cycle {
	const day = 24 * 60
	best := cycles[0]
	bestDist := day
	for _, c := range cycles {
		d := c.OnTime.Minutes() - t.Minutes()
		if d < 0 {
			d = -d
		}
		if day-d < d {
			d = day - d
		}
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
