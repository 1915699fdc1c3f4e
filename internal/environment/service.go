// Package environment aggregates the daylight calculator and the weather
// provider into the single {temperature, humidity, daylight, ...} view the
// adaptive synthesizer and the status API read, with copy-on-read
// semantics.
package environment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Duds/hydro-automation/internal/daylight"
	"github.com/Duds/hydro-automation/internal/weather"
)

// View is the copy-on-read snapshot callers receive.
type View struct {
	TemperatureC      *float64
	HumidityPct       *float64
	Daylight          daylight.Info
	StationID         string
	StationName       string
	AdaptationEnabled bool
}

// Observer receives weather-fetch outcomes for ambient observability
// (metrics). A nil Observer is valid; every method must tolerate it.
// Declared locally, implemented by internal/metrics, so this package never
// imports the metrics package.
type Observer interface {
	WeatherFetchFailed()
	WeatherSampleAge(age time.Duration)
}

type noopObserver struct{}

func (noopObserver) WeatherFetchFailed()            {}
func (noopObserver) WeatherSampleAge(time.Duration) {}

// Service aggregates daylight + weather for a single location.
type Service struct {
	lg                *slog.Logger
	daylightCalc      *daylight.Calculator
	weatherProvider   *weather.Provider
	stationID         string
	adaptationEnabled bool
	now               func() time.Time
	obs               Observer

	mu     sync.RWMutex
	cached View
	warm   bool
}

// New builds a Service. daylightCalc/weatherProvider may be nil when the
// respective sub-feature is disabled in configuration; the service then
// reports nulls for that half of the view without erroring. obs may be nil.
func New(lg *slog.Logger, daylightCalc *daylight.Calculator, weatherProvider *weather.Provider, stationID string, adaptationEnabled bool, obs Observer) *Service {
	if obs == nil {
		obs = noopObserver{}
	}
	return &Service{
		lg:                lg,
		daylightCalc:      daylightCalc,
		weatherProvider:   weatherProvider,
		stationID:         stationID,
		adaptationEnabled: adaptationEnabled,
		now:               time.Now,
		obs:               obs,
	}
}

// Refresh re-fetches weather (subject to the provider's own cache/TTL
// rules) and recomputes today's daylight, then publishes a new View.
func (s *Service) Refresh(ctx context.Context) error {
	view := View{AdaptationEnabled: s.adaptationEnabled}

	if s.daylightCalc != nil {
		info, err := s.daylightCalc.Compute(s.now())
		if err != nil {
			s.lg.Warn("daylight_compute_failed", "error", err)
		} else {
			view.Daylight = info
		}
	}

	if s.weatherProvider != nil {
		var hint *weather.Station
		if s.daylightCalc != nil {
			loc := s.daylightCalc.Location()
			st, _ := s.weatherProvider.ResolveStation(loc.Latitude, loc.Longitude)
			hint = &st
		}
		sample, err := s.weatherProvider.Fetch(ctx, s.stationID, hint)
		if err != nil {
			s.lg.Warn("weather_fetch_failed", "error", err)
			s.obs.WeatherFetchFailed()
		} else {
			view.TemperatureC = sample.TemperatureC
			view.HumidityPct = sample.HumidityPct
			view.StationID = sample.StationID
			view.StationName = sample.StationName
			s.obs.WeatherSampleAge(s.now().Sub(sample.SampleTime))
		}
	}

	s.mu.Lock()
	s.cached = view
	s.warm = true
	s.mu.Unlock()
	return nil
}

// View returns a copy of the last-refreshed view. Safe for concurrent use.
func (s *Service) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

// Warm reports whether Refresh has succeeded at least once.
func (s *Service) Warm() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warm
}
