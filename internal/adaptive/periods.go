package adaptive

import (
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/daylight"
)

// periodWindow is a [start,end) window expressed in minutes since midnight,
// with end possibly exceeding 1440 when the window wraps past midnight.
type periodWindow struct {
	name  string
	start int
	end   int
}

// clampToRange keeps a computed sunrise/sunset inside a plausible window:
// a value outside [loMin, hiMin] falls back to a fixed default rather than
// dragging a period boundary to an extreme (midnight sun, polar night, or
// a bad location fix).
func clampToRange(minutes int, loMin, hiMin, fallback int) int {
	if minutes >= loMin && minutes <= hiMin {
		return minutes
	}
	return fallback
}

func minutesOfDay(hh, mm int) int { return hh*60 + mm }

// periodWindows computes the four daily periods for a given day's daylight
// info: morning runs from sunrise to 09:00, day from 09:00 to sunset,
// evening from sunset to 20:00, night from 20:00 to the next sunrise.
// Windows that collapse to zero or negative width are dropped.
func periodWindows(info daylight.Info) []periodWindow {
	sunriseMin := info.Sunrise.Hour()*60 + info.Sunrise.Minute()
	sunsetMin := info.Sunset.Hour()*60 + info.Sunset.Minute()

	morningStart := clampToRange(sunriseMin, minutesOfDay(5, 0), minutesOfDay(7, 0), minutesOfDay(6, 0))
	duskStart := clampToRange(sunsetMin, minutesOfDay(17, 0), minutesOfDay(19, 0), minutesOfDay(18, 0))
	nightEnd := clampToRange(sunriseMin, minutesOfDay(5, 0), minutesOfDay(7, 0), minutesOfDay(6, 0))

	nineAM := minutesOfDay(9, 0)
	eightPM := minutesOfDay(20, 0)

	windows := []periodWindow{
		{name: cycle.PeriodMorning, start: morningStart, end: nineAM},
		{name: cycle.PeriodDay, start: nineAM, end: duskStart},
		{name: cycle.PeriodEvening, start: duskStart, end: eightPM},
		{name: cycle.PeriodNight, start: eightPM, end: 1440 + nightEnd},
	}
	out := make([]periodWindow, 0, len(windows))
	for _, w := range windows {
		if w.end > w.start {
			out = append(out, w)
		}
	}
	return out
}
