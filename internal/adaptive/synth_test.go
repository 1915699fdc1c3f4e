package adaptive

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/daylight"
)

func dayInfo(sunriseHH, sunriseMM, sunsetHH, sunsetMM int) daylight.Info {
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	sunrise := time.Date(2026, 1, 15, sunriseHH, sunriseMM, 0, 0, time.UTC)
	sunset := time.Date(2026, 1, 15, sunsetHH, sunsetMM, 0, 0, time.UTC)
	return daylight.Info{
		Date:             day,
		Sunrise:          sunrise,
		Sunset:           sunset,
		DayLengthMinutes: sunset.Sub(sunrise).Minutes(),
	}
}

func baseConfig() Config {
	return Config{
		FloodMinutes:     3,
		TodFrequencies:   DefaultTodFrequencies(),
		TemperatureBands: DefaultTemperatureBands(),
		HumidityBands:    DefaultHumidityBands(),
		Constraints:      DefaultConstraints(),
	}
}

func TestSynthesizeProducesNonEmptyPlan(t *testing.T) {
	cfg := baseConfig()
	dl := dayInfo(6, 30, 19, 45)
	temp := 22.0
	hum := 55.0
	plan, err := Synthesize(cfg, dl, Sample{TemperatureC: &temp, HumidityPct: &hum})
	require.NoError(t, err)
	require.Greater(t, plan.Len(), 0)
	for _, c := range plan.Cycles() {
		require.NotEmpty(t, c.Period)
		require.GreaterOrEqual(t, c.OffMinutes, cfg.Constraints.MinWait)
		require.LessOrEqual(t, c.OffMinutes, cfg.Constraints.MaxWait)
	}
}

func TestSynthesizeDayPeriodDefaultSpacing(t *testing.T) {
	cfg := baseConfig()
	cfg.FloodMinutes = 2
	dl := dayInfo(6, 0, 18, 0)
	temp := 22.0
	hum := 55.0

	plan, err := Synthesize(cfg, dl, Sample{TemperatureC: &temp, HumidityPct: &hum})
	require.NoError(t, err)

	var day []string
	for _, c := range plan.Cycles() {
		if c.Period == "day" {
			day = append(day, c.OnTime.Format())
			require.InDelta(t, 28.0, c.OffMinutes, 0.001)
			require.InDelta(t, 1.0, c.TempFactor, 0.001)
			require.InDelta(t, 1.0, c.HumidityFactor, 0.001)
		}
	}
	// 09:00 through 17:30 every 30 minutes; the 18:00 candidate is the
	// period boundary and is not emitted.
	require.Len(t, day, 18)
	require.Equal(t, "09:00", day[0])
	require.Equal(t, "09:30", day[1])
	require.Equal(t, "17:30", day[len(day)-1])
}

func TestSynthesizeHotDryShortensDayWait(t *testing.T) {
	cfg := baseConfig()
	cfg.FloodMinutes = 2
	dl := dayInfo(6, 0, 18, 0)
	temp := 32.0
	hum := 30.0

	plan, err := Synthesize(cfg, dl, Sample{TemperatureC: &temp, HumidityPct: &hum})
	require.NoError(t, err)

	var day []cycleView
	for _, c := range plan.Cycles() {
		if c.Period == "day" {
			day = append(day, cycleView{on: c.OnTime.Format(), off: c.OffMinutes})
		}
	}
	require.NotEmpty(t, day)
	// target_off = 28 * 0.70 * 0.9 = 17.64; the fractional cursor
	// accumulates, only the emitted on_time is floored to HH:MM.
	require.InDelta(t, 17.64, day[0].off, 0.001)
	require.Equal(t, "09:00", day[0].on)
	require.Equal(t, "09:19", day[1].on)
	require.Equal(t, "09:39", day[2].on)
}

type cycleView struct {
	on  string
	off float64
}

func TestSynthesizeIsPure(t *testing.T) {
	cfg := baseConfig()
	dl := dayInfo(6, 10, 18, 50)
	temp := 28.0
	sample := Sample{TemperatureC: &temp}

	plan1, err := Synthesize(cfg, dl, sample)
	require.NoError(t, err)
	plan2, err := Synthesize(cfg, dl, sample)
	require.NoError(t, err)

	require.Equal(t, plan1.Cycles(), plan2.Cycles())
}

func TestSynthesizeHotWeatherShortensWait(t *testing.T) {
	cfg := baseConfig()
	dl := dayInfo(6, 0, 19, 0)

	cold := -5.0
	hot := 35.0
	coldPlan, err := Synthesize(cfg, dl, Sample{TemperatureC: &cold})
	require.NoError(t, err)
	hotPlan, err := Synthesize(cfg, dl, Sample{TemperatureC: &hot})
	require.NoError(t, err)

	coldWait := coldPlan.Cycles()[0].OffMinutes
	hotWait := hotPlan.Cycles()[0].OffMinutes
	require.Greater(t, coldWait, hotWait)
}

func TestSynthesizeUnknownSampleMatchesNeutralFactors(t *testing.T) {
	cfg := baseConfig()
	dl := dayInfo(6, 0, 18, 0)

	unknown, err := Synthesize(cfg, dl, Sample{})
	require.NoError(t, err)

	temp, hum := 20.0, 55.0 // inside the factor-1.0 bands
	neutral, err := Synthesize(cfg, dl, Sample{TemperatureC: &temp, HumidityPct: &hum})
	require.NoError(t, err)

	uc, nc := unknown.Cycles(), neutral.Cycles()
	require.Equal(t, len(nc), len(uc))
	for i := range uc {
		require.Equal(t, nc[i].OnTime, uc[i].OnTime)
		require.Equal(t, nc[i].OffMinutes, uc[i].OffMinutes)
	}
}

func TestSynthesizeRejectsNonPositiveFloodMinutes(t *testing.T) {
	cfg := baseConfig()
	cfg.FloodMinutes = 0
	dl := dayInfo(6, 0, 19, 0)
	_, err := Synthesize(cfg, dl, Sample{})
	require.Error(t, err)
}

func TestValidateBandsRejectsGap(t *testing.T) {
	bands := []Band{
		{Name: "low", Max: f(10), Factor: 1},
		{Name: "high", Min: f(20), Factor: 1},
	}
	require.Error(t, ValidateBands(bands))
}

func TestValidateBandsAcceptsCoveringSet(t *testing.T) {
	require.NoError(t, ValidateBands(DefaultTemperatureBands()))
	require.NoError(t, ValidateBands(DefaultHumidityBands()))
}

func TestValidateAgainstReportsDeviations(t *testing.T) {
	cfg := baseConfig()
	dl := dayInfo(6, 0, 19, 0)
	tempA := 10.0
	tempB := 32.0

	coldPlan, err := Synthesize(cfg, dl, Sample{TemperatureC: &tempA})
	require.NoError(t, err)
	hotPlan, err := Synthesize(cfg, dl, Sample{TemperatureC: &tempB})
	require.NoError(t, err)

	// Cold waits (factor 1.15) are 64% longer than hot waits (factor 0.70),
	// past the 50% deviation threshold; the reverse direction is only -39%.
	report := ValidateAgainst(coldPlan, hotPlan)
	require.Equal(t, coldPlan.Len(), report.Matches+len(report.Deviations))
	require.NotEmpty(t, report.Deviations)
	for _, d := range report.Deviations {
		require.Greater(t, math.Abs(d.PercentDelta), 50.0)
	}
}
