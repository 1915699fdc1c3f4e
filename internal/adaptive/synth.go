package adaptive

import (
	"fmt"

	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/daylight"
)

// Sample is the subset of an environmental reading the synthesizer needs.
// It is intentionally narrower than weather.Sample / environment.View so
// this package stays free of their imports.
type Sample struct {
	TemperatureC *float64
	HumidityPct  *float64
}

func clampf(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

// Synthesize produces a SchedulePlan from cfg, the day's daylight window
// and the latest environmental sample. It is a pure function: given the
// same three arguments it always returns the same plan, and it has no
// parameter through which any prior or "base" schedule could influence the
// result.
func Synthesize(cfg Config, dl daylight.Info, sample Sample) (*cycle.SchedulePlan, error) {
	if cfg.FloodMinutes <= 0 {
		return nil, fmt.Errorf("adaptive: flood_minutes must be positive")
	}
	if err := ValidateBands(cfg.TemperatureBands); err != nil {
		return nil, err
	}
	if err := ValidateBands(cfg.HumidityBands); err != nil {
		return nil, err
	}

	tempFactor, _ := factorFor(cfg.TemperatureBands, sample.TemperatureC)
	humFactor, _ := factorFor(cfg.HumidityBands, sample.HumidityPct)

	windows := periodWindows(dl)
	if len(windows) == 0 {
		return nil, fmt.Errorf("adaptive: no non-empty periods for this daylight window")
	}

	var cycles []cycle.Cycle
	for _, w := range windows {
		base, ok := cfg.TodFrequencies[w.name]
		if !ok {
			return nil, fmt.Errorf("adaptive: missing tod_frequencies entry for period %q", w.name)
		}
		periodFactor := 1.0
		if cfg.PeriodFactors != nil {
			if pf, ok := cfg.PeriodFactors[w.name]; ok && pf > 0 {
				periodFactor = pf
			}
		}

		rawWait := base * tempFactor * humFactor / periodFactor
		wait, waitClamped := clampf(rawWait, cfg.Constraints.MinWait, cfg.Constraints.MaxWait)
		flood, floodClamped := clampf(cfg.FloodMinutes, cfg.Constraints.MinFlood, cfg.Constraints.MaxFlood)
		clamped := waitClamped || floodClamped

		step := flood + wait
		if step <= 0 {
			return nil, fmt.Errorf("adaptive: period %q produced a non-positive cycle step", w.name)
		}

		// The cursor stays fractional so sub-minute waits accumulate rather
		// than drift; only the emitted on_time is floored to HH:MM.
		end := float64(w.end)
		for cursor := float64(w.start); cursor+step <= end; cursor += step {
			cycles = append(cycles, cycle.Cycle{
				OnTime:         cycle.FromMinutes(int(cursor) % 1440),
				FloodMinutes:   flood,
				OffMinutes:     wait,
				Period:         w.name,
				TemperatureC:   sample.TemperatureC,
				HumidityPct:    sample.HumidityPct,
				TempFactor:     tempFactor,
				HumidityFactor: humFactor,
				ClampDeviation: clamped,
			})
		}
	}

	if len(cycles) == 0 {
		return nil, fmt.Errorf("adaptive: synthesized zero cycles for this configuration and sample")
	}
	return cycle.NewPlan(cycles)
}
