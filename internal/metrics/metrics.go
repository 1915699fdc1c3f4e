// Package metrics wraps a Prometheus registry for the scheduler's counters
// and gauges. A nil *Registry is safe to call every method on, so callers
// never need to guard for metrics being disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
)

var allStates = []cycle.SchedulerState{
	cycle.StateStopped, cycle.StateWaiting, cycle.StateFlood, cycle.StateDrain,
}

// Registry holds every metric this process exposes. Construct one with New
// and thread it explicitly into every component that wants to record
// something — there is no package-level default registry.
type Registry struct {
	registry *prometheus.Registry

	transitions      *prometheus.CounterVec
	stateGauge       *prometheus.GaugeVec
	deviceOn         prometheus.Gauge
	deviceReachable  prometheus.Gauge
	deviceRetries    prometheus.Counter
	weatherFailures  prometheus.Counter
	weatherSampleAge prometheus.Gauge
	resynthesis      prometheus.Counter
}

// New builds and registers every metric against a fresh
// prometheus.Registry (never the global DefaultRegisterer, so multiple
// instances in tests never collide).
func New() *Registry {
	m := &Registry{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_transitions_total",
			Help: "Total scheduler state transitions by from/to state.",
		}, []string{"from", "to"}),
		stateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_state",
			Help: "1 for the scheduler's current state, 0 for all others.",
		}, []string{"state"}),
		deviceOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "device_on",
			Help: "1 if the device last verified ON, 0 if OFF. Starts at 0 and keeps its previous value while the state is unknown.",
		}),
		deviceReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "device_reachable",
			Help: "1 if the device controller is currently connected, else 0.",
		}),
		deviceRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "device_command_retries_total",
			Help: "Total device commands that failed after exhausting their verify-and-retry budget. Individual retries are not counted.",
		}),
		weatherFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_fetch_failures_total",
			Help: "Total failed weather fetch attempts.",
		}),
		weatherSampleAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_sample_age_seconds",
			Help: "Age of the most recent weather sample in seconds.",
		}),
		resynthesis: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adaptive_resynthesis_total",
			Help: "Total adaptive schedule re-syntheses performed.",
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.transitions, m.stateGauge, m.deviceOn, m.deviceReachable,
		m.deviceRetries, m.weatherFailures, m.weatherSampleAge, m.resynthesis,
	)
	m.registry = reg
	for _, st := range allStates {
		m.stateGauge.WithLabelValues(st.String()).Set(0)
	}
	return m
}

// Handler returns the promhttp handler for this registry, wired to
// GET /metrics by cmd/hydropumpd.
func (m *Registry) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetState moves the scheduler_state gauge set: the new state to 1, every
// other known state to 0, and increments scheduler_transitions_total.
func (m *Registry) SetState(from, to cycle.SchedulerState) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	for _, st := range allStates {
		v := 0.0
		if st == to {
			v = 1.0
		}
		m.stateGauge.WithLabelValues(st.String()).Set(v)
	}
}

// SetDeviceState records the device's last-verified on/off/unknown state.
// Unknown leaves the gauge at its previous value: there is nothing
// meaningful to report until the next successful verification.
func (m *Registry) SetDeviceState(s device.TriState, reachable bool) {
	if m == nil {
		return
	}
	switch s {
	case device.On:
		m.deviceOn.Set(1)
	case device.Off:
		m.deviceOn.Set(0)
	}
	if reachable {
		m.deviceReachable.Set(1)
	} else {
		m.deviceReachable.Set(0)
	}
}

// IncDeviceRetry adds one to device_command_retries_total. The scheduler
// calls it once per device command that failed after its retry budget, not
// once per individual retry.
func (m *Registry) IncDeviceRetry() {
	if m == nil {
		return
	}
	m.deviceRetries.Inc()
}

// IncWeatherFetchFailure records one failed weather fetch attempt.
func (m *Registry) IncWeatherFetchFailure() {
	if m == nil {
		return
	}
	m.weatherFailures.Inc()
}

// SetWeatherSampleAge records how stale the current weather sample is.
func (m *Registry) SetWeatherSampleAge(age time.Duration) {
	if m == nil {
		return
	}
	m.weatherSampleAge.Set(age.Seconds())
}

// IncResynthesis records one adaptive re-synthesis.
func (m *Registry) IncResynthesis() {
	if m == nil {
		return
	}
	m.resynthesis.Inc()
}
