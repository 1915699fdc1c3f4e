package metrics

import (
	"time"

	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/environment"
	"github.com/Duds/hydro-automation/internal/scheduler"
)

// schedulerObserver implements scheduler.Observer. Only this file imports
// internal/scheduler; the scheduler package never imports metrics back, so
// the dependency edge runs one way.
type schedulerObserver struct {
	r *Registry
}

// Observer adapts this Registry to the scheduler.Observer interface. A nil
// Registry yields a valid, inert Observer.
func (r *Registry) Observer() scheduler.Observer {
	return schedulerObserver{r: r}
}

func (o schedulerObserver) Transition(from, to cycle.SchedulerState) {
	o.r.SetState(from, to)
}

func (o schedulerObserver) DeviceCommandRetried() {
	o.r.IncDeviceRetry()
}

func (o schedulerObserver) Resynthesized() {
	o.r.IncResynthesis()
}

// environmentObserver implements environment.Observer for the same reason:
// internal/environment stays ignorant of internal/metrics.
type environmentObserver struct {
	r *Registry
}

// EnvironmentObserver adapts this Registry to the environment.Observer
// interface. A nil Registry yields a valid, inert Observer.
func (r *Registry) EnvironmentObserver() environment.Observer {
	return environmentObserver{r: r}
}

func (o environmentObserver) WeatherFetchFailed() {
	o.r.IncWeatherFetchFailure()
}

func (o environmentObserver) WeatherSampleAge(age time.Duration) {
	o.r.SetWeatherSampleAge(age)
}
