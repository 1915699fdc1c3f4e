package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ErrUnavailable is the transient-fetch-failure sentinel, returned only
// when there is no cached sample to fall back on.
var ErrUnavailable = errors.New("weather: unavailable")

// Sample is one observation of outdoor conditions. Nil fields mean the
// value is unknown.
type Sample struct {
	TemperatureC *float64
	HumidityPct  *float64
	SampleTime   time.Time
	StationID    string
	StationName  string
}

// Config configures a Provider.
type Config struct {
	// BaseURL is templated as "{BaseURL}/stations/{station_id}/observations".
	BaseURL            string
	UpdateInterval     time.Duration // default 60m
	MinRefreshInterval time.Duration // origin-specified floor, default 30m
	StalenessMultiple  int           // default 4
	RequestTimeout     time.Duration // default 10s
}

func (c *Config) applyDefaults() {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = 60 * time.Minute
	}
	if c.MinRefreshInterval <= 0 {
		c.MinRefreshInterval = 30 * time.Minute
	}
	if c.StalenessMultiple <= 0 {
		c.StalenessMultiple = 4
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

// HTTPDoer is the subset of *http.Client a Provider needs; tests substitute
// a stub.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider polls an external meteorological feed for temperature/humidity,
// serving cached samples between polls and degrading to nulls once a
// sample outlives the staleness budget.
type Provider struct {
	cfg    Config
	client HTTPDoer
	lg     *slog.Logger

	mu          sync.RWMutex
	last        Sample
	lastFetchAt time.Time
	haveSample  bool

	resolveMu sync.Mutex
	resolved  map[string]Station // memoized "auto" resolution, keyed "lat,lon"
}

// NewProvider builds a Provider. client may be nil to use http.DefaultClient.
func NewProvider(cfg Config, client HTTPDoer, lg *slog.Logger) *Provider {
	cfg.applyDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{cfg: cfg, client: client, lg: lg, resolved: make(map[string]Station)}
}

// ResolveStation implements "auto" station resolution by nearest
// great-circle distance, memoized per coordinate pair.
func (p *Provider) ResolveStation(lat, lon float64) (Station, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	p.resolveMu.Lock()
	defer p.resolveMu.Unlock()
	if s, ok := p.resolved[key]; ok {
		return s, nil
	}
	s, _, ok := NearestStation(lat, lon)
	if !ok {
		return Station{}, fmt.Errorf("weather: no stations available to resolve")
	}
	p.resolved[key] = s
	return s, nil
}

// Fetch returns the current sample for stationID ("auto" resolves via
// locationHint), polling the network at most once per UpdateInterval and
// never more often than MinRefreshInterval. Between polls, or on fetch
// failure within StalenessMultiple*UpdateInterval of the last good sample,
// the last good sample is returned; beyond that window fields go null.
func (p *Provider) Fetch(ctx context.Context, stationID string, locationHint *Station) (Sample, error) {
	station, err := p.stationFor(stationID, locationHint)
	if err != nil {
		return Sample{}, err
	}

	p.mu.RLock()
	sinceLastFetch := time.Since(p.lastFetchAt)
	haveSample := p.haveSample
	cached := p.last
	p.mu.RUnlock()

	dueForPoll := !haveSample || sinceLastFetch >= p.cfg.UpdateInterval
	withinFloor := haveSample && sinceLastFetch < p.cfg.MinRefreshInterval
	if withinFloor {
		return cached, nil
	}
	if !dueForPoll {
		return cached, nil
	}

	sample, ferr := p.fetchFromOrigin(ctx, station)
	p.mu.Lock()
	defer p.mu.Unlock()
	if ferr != nil {
		if !p.haveSample {
			return Sample{}, fmt.Errorf("%w: %v", ErrUnavailable, ferr)
		}
		staleFor := time.Since(p.lastFetchAt)
		if staleFor > time.Duration(p.cfg.StalenessMultiple)*p.cfg.UpdateInterval {
			p.last = Sample{SampleTime: p.last.SampleTime, StationID: p.last.StationID, StationName: p.last.StationName}
			return p.last, nil
		}
		p.lg.Warn("weather_fetch_failed_serving_cache", "station", station.ID, "error", ferr)
		return p.last, nil
	}
	p.last = sample
	p.lastFetchAt = time.Now()
	p.haveSample = true
	return sample, nil
}

func (p *Provider) stationFor(stationID string, hint *Station) (Station, error) {
	if stationID != "" && stationID != "auto" {
		if s, ok := StationByID(stationID); ok {
			return s, nil
		}
		return Station{}, fmt.Errorf("weather: unknown station id %q", stationID)
	}
	if hint == nil {
		return Station{}, fmt.Errorf("weather: \"auto\" station resolution requires a location hint")
	}
	return p.ResolveStation(hint.Latitude, hint.Longitude)
}

type originObservation struct {
	Observations struct {
		Data []struct {
			AirTempC *float64 `json:"air_temp"`
			RelHum   *float64 `json:"rel_hum"`
		} `json:"data"`
	} `json:"observations"`
}

func (p *Provider) fetchFromOrigin(ctx context.Context, station Station) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/stations/%s/observations", p.cfg.BaseURL, station.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Sample{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Sample{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("weather: origin returned %d", resp.StatusCode)
	}
	var obs originObservation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return Sample{}, fmt.Errorf("weather: decode origin response: %w", err)
	}
	if len(obs.Observations.Data) == 0 {
		return Sample{}, fmt.Errorf("weather: origin returned no observations")
	}
	latest := obs.Observations.Data[0]
	return Sample{
		TemperatureC: latest.AirTempC,
		HumidityPct:  latest.RelHum,
		SampleTime:   time.Now(),
		StationID:    station.ID,
		StationName:  station.Name,
	}, nil
}
