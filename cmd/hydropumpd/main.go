// Command hydropumpd runs the flood/drain pump scheduler as a standalone
// daemon: it loads and validates a JSON configuration file, builds the
// selected scheduler strategy and its collaborators, serves the HTTP
// control surface, and shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Duds/hydro-automation/internal/api"
	"github.com/Duds/hydro-automation/internal/clock"
	"github.com/Duds/hydro-automation/internal/config"
	"github.com/Duds/hydro-automation/internal/daylight"
	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/internal/environment"
	"github.com/Duds/hydro-automation/internal/logging"
	"github.com/Duds/hydro-automation/internal/metrics"
	"github.com/Duds/hydro-automation/internal/scheduler"
	"github.com/Duds/hydro-automation/internal/weather"
)

func main() {
	configPath := flag.String("config", "./config.json", "path to the JSON configuration file")
	brokerURL := flag.String("broker", "tcp://localhost:1883", "default MQTT broker URL for devices without a credentials.broker override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	norm, err := config.Validate(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lg, logFile := logging.Init(norm.LogFile, norm.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}
	lg.Info("hydropumpd starting", "config", *configPath, "schedule_type", norm.Factory.Type)

	var m *metrics.Registry
	if norm.MetricsOn {
		m = metrics.New()
	}
	var obs scheduler.Observer
	if m != nil {
		obs = m.Observer()
	}

	tz := "Local"
	if norm.Adaptation != nil {
		tz = norm.Adaptation.Timezone
	}
	loc, err := loadLocation(tz)
	if err != nil {
		lg.Error("invalid timezone", "timezone", tz, "error", err)
		os.Exit(1)
	}
	clk := clock.NewSystem(loc)

	ctrl, err := buildDeviceController(lg, norm, *brokerURL)
	if err != nil {
		lg.Error("device controller build failed", "error", err)
		os.Exit(1)
	}
	connectDevice(lg, ctrl)

	buildBundle := func(cfg *config.Config) (*api.Bundle, error) {
		n, err := config.Validate(cfg)
		if err != nil {
			return nil, err
		}
		dc, err := buildDeviceController(lg, n, *brokerURL)
		if err != nil {
			return nil, err
		}
		connectDevice(lg, dc)
		env, err := buildEnvironment(lg, n, m)
		if err != nil {
			return nil, err
		}
		var envSrc scheduler.EnvironmentSource
		if env != nil {
			envSrc = env
		}
		sch, err := scheduler.New(n.Factory, envSrc, dc, clk, lg, obs)
		if err != nil {
			return nil, err
		}
		return &api.Bundle{Scheduler: sch, Device: dc, Env: env}, nil
	}

	env, err := buildEnvironment(lg, norm, m)
	if err != nil {
		// An unknown postcode is fatal for adaptation only: a schedule that
		// does not depend on synthesis still runs without it.
		if errors.Is(err, daylight.ErrLocationUnknown) && !norm.Factory.AdaptiveEnabled {
			lg.Error("adaptation disabled: location unknown", "error", err)
			env = nil
		} else {
			lg.Error("environment build failed", "error", err)
			os.Exit(1)
		}
	}
	var envSrc scheduler.EnvironmentSource
	if env != nil {
		envSrc = env
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := env.Refresh(ctx); err != nil {
			lg.Warn("initial_environment_refresh_failed", "error", err)
		}
		cancel()
	}

	sched, err := scheduler.New(norm.Factory, envSrc, ctrl, clk, lg, obs)
	if err != nil {
		lg.Error("scheduler build failed", "error", err)
		os.Exit(1)
	}

	bind := norm.MetricsBind
	if bind == "" {
		bind = ":8080"
	}
	bundle := &api.Bundle{Scheduler: sched, Device: ctrl, Env: env}
	srv := api.NewServer(bind, lg, m, bundle, buildBundle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		lg.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	go func() {
		lg.Info("http server listening", "addr", bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server error", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	lg.Info("shutdown requested")

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), scheduler.GracefulShutdownBudget+5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown error", "error", err)
	}
	cancel()
	lg.Info("hydropumpd stopped")
}

// connectDevice establishes the control channel best-effort: an unreachable
// device at startup is surfaced on Status as device_connected=false, and
// every later command re-attempts through the retry budget.
func connectDevice(lg *slog.Logger, ctrl device.Controller) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := ctrl.Connect(ctx); err != nil {
		lg.Warn("device connect failed; commands will keep retrying", "address", ctrl.Address(), "error", err)
	}
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// buildDeviceController selects an MQTT controller for the growing
// system's primary device. credentials["broker"] overrides the process
// default broker URL.
func buildDeviceController(lg *slog.Logger, norm *config.Normalized, defaultBroker string) (device.Controller, error) {
	d := norm.PrimaryDevice
	if d.DeviceID == "" {
		return nil, fmt.Errorf("hydropumpd: no primary device configured")
	}
	broker := defaultBroker
	if b, ok := d.Credentials["broker"]; ok && b != "" {
		broker = b
	}
	return device.NewMQTTController(lg, broker, d.Address, nil, device.DefaultRetryPolicy()), nil
}

// buildEnvironment constructs the daylight/weather/environment stack when
// adaptation is enabled, returning (nil, nil) otherwise.
func buildEnvironment(lg *slog.Logger, norm *config.Normalized, m *metrics.Registry) (*environment.Service, error) {
	if norm.Adaptation == nil {
		return nil, nil
	}
	a := norm.Adaptation

	daylightCalc, err := daylight.NewCalculator(a.Postcode, a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("hydropumpd: daylight calculator: %w", err)
	}

	var weatherProvider *weather.Provider
	if a.TemperatureEnabled {
		weatherProvider = weather.NewProvider(weather.Config{
			BaseURL:            "https://api.weather.gov.au/v1",
			UpdateInterval:     a.WeatherUpdateInterval,
			MinRefreshInterval: 30 * time.Minute,
			StalenessMultiple:  4,
			RequestTimeout:     10 * time.Second,
		}, nil, lg)
	}

	var envObs environment.Observer
	if m != nil {
		envObs = m.EnvironmentObserver()
	}
	return environment.New(lg, daylightCalc, weatherProvider, a.StationID, true, envObs), nil
}
