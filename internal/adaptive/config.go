// Package adaptive implements the adaptive synthesizer: a pure function of
// (adaptation configuration, today's daylight, latest environmental
// sample) producing a SchedulePlan. It deliberately has no parameter
// through which a pre-existing plan could be observed, so a synthesized
// day can never inherit structure from the one before it.
package adaptive

import "fmt"

// Band is one partition of a factor table (temperature or humidity). Min
// and Max are nil when the band is open-ended on that side.
type Band struct {
	Name   string
	Min    *float64
	Max    *float64
	Factor float64
}

// Constraints bounds the synthesizer's output durations.
type Constraints struct {
	MinWait  float64
	MaxWait  float64
	MinFlood float64
	MaxFlood float64
}

// Config is the full adaptation configuration the synthesizer needs.
type Config struct {
	FloodMinutes     float64
	TodFrequencies   map[string]float64 // period -> base off-minutes
	TemperatureBands []Band
	HumidityBands    []Band
	PeriodFactors    map[string]float64 // period -> daylight-derived multiplier, optional
	Constraints      Constraints
}

// DefaultTodFrequencies is the base off-duration per period, in minutes.
func DefaultTodFrequencies() map[string]float64 {
	return map[string]float64{
		"morning": 18,
		"day":     28,
		"evening": 18,
		"night":   118,
	}
}

func f(v float64) *float64 { return &v }

// DefaultTemperatureBands: hotter air shortens waits, colder lengthens them.
func DefaultTemperatureBands() []Band {
	return []Band{
		{Name: "cold", Max: f(15), Factor: 1.15},
		{Name: "normal", Min: f(15), Max: f(25), Factor: 1.0},
		{Name: "warm", Min: f(25), Max: f(30), Factor: 0.85},
		{Name: "hot", Min: f(30), Factor: 0.70},
	}
}

// DefaultHumidityBands: dry air shortens waits, humid air lengthens them.
func DefaultHumidityBands() []Band {
	return []Band{
		{Name: "low", Max: f(40), Factor: 0.9},
		{Name: "normal", Min: f(40), Max: f(70), Factor: 1.0},
		{Name: "high", Min: f(70), Factor: 1.1},
	}
}

// DefaultConstraints matches the time-of-day strategy's default clamp
// bounds.
func DefaultConstraints() Constraints {
	return Constraints{MinWait: 5, MaxWait: 180, MinFlood: 2, MaxFlood: 15}
}

// ValidateBands checks that bands partition the real line with no gaps and
// that every factor is positive.
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("adaptive: band list must not be empty")
	}
	for _, b := range bands {
		if b.Factor <= 0 {
			return fmt.Errorf("adaptive: band %q has non-positive factor %v", b.Name, b.Factor)
		}
	}
	// Coverage check: every real number must match at least one band. Max is
	// exclusive, so any uncovered stretch starts exactly at some band's Max
	// (or at minus infinity); probing each Min, each Max and just below each
	// Max, plus requiring open-ended bands on both sides, finds every gap.
	probe := func(x float64) bool {
		_, ok := factorFor(bands, &x)
		return ok
	}
	hasOpenLow, hasOpenHigh := false, false
	for _, b := range bands {
		if b.Min == nil {
			hasOpenLow = true
		}
		if b.Max == nil {
			hasOpenHigh = true
		}
		if b.Min != nil && !probe(*b.Min) {
			return fmt.Errorf("adaptive: gap at band boundary %v", *b.Min)
		}
		if b.Max != nil && !probe(*b.Max-0.0001) {
			return fmt.Errorf("adaptive: gap just below band boundary %v", *b.Max)
		}
		if b.Max != nil && !probe(*b.Max) {
			return fmt.Errorf("adaptive: gap at band boundary %v", *b.Max)
		}
	}
	if !hasOpenLow || !hasOpenHigh {
		return fmt.Errorf("adaptive: bands must cover the full real line (need one open-low and one open-high band)")
	}
	return nil
}

func factorFor(bands []Band, value *float64) (float64, bool) {
	if value == nil {
		return 1.0, true
	}
	for _, b := range bands {
		if b.Min != nil && *value < *b.Min {
			continue
		}
		if b.Max != nil && *value >= *b.Max {
			continue
		}
		return b.Factor, true
	}
	return 1.0, false
}
