// Package api provides the HTTP/JSON binding for the scheduling core's
// control and status operations: status and validation snapshots,
// start/stop/replan, direct device control, emergency stop, and live
// configuration replacement.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Duds/hydro-automation/internal/adaptive"
	"github.com/Duds/hydro-automation/internal/config"
	"github.com/Duds/hydro-automation/internal/cycle"
	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/internal/environment"
	"github.com/Duds/hydro-automation/internal/metrics"
	"github.com/Duds/hydro-automation/internal/scheduler"
)

// ErrShuttingDown is returned to control commands received during
// shutdown: a deterministic error rather than a half-applied action.
var ErrShuttingDown = scheduler.ErrShuttingDown

// Validator is implemented by strategies that can report adaptive
// synthesis drift (only *scheduler.Adaptive today). Declared locally so
// this package depends on a method set, not a concrete type.
type Validator interface {
	Validation() (adaptive.ValidationReport, bool)
}

// Replanner is implemented by strategies whose installed plan can be
// swapped without a restart (*scheduler.TimeOfDay and, by embedding,
// *scheduler.Adaptive).
type Replanner interface {
	SetPlan(plan *cycle.SchedulePlan) error
}

// Bundle is the live set of collaborators the API drives. cmd/hydropumpd
// builds one from validated configuration; RebuildFunc produces a
// replacement when POST /config installs a new configuration.
type Bundle struct {
	Scheduler scheduler.Scheduler
	Device    device.Controller
	Env       *environment.Service // nil when adaptation is disabled
}

// RebuildFunc constructs a fresh Bundle from a newly validated
// configuration. The previous Bundle's scheduler has already been stopped
// by the time this is called.
type RebuildFunc func(cfg *config.Config) (*Bundle, error)

// Server is the HTTP binding. It never mutates scheduler state except via
// the Start/Stop/Replan/TurnOn/TurnOff contract.
type Server struct {
	lg      *slog.Logger
	metrics *metrics.Registry
	rebuild RebuildFunc

	mu     sync.RWMutex
	bundle *Bundle

	shuttingDown atomic.Bool
	http         *http.Server
}

// NewServer builds a Server bound to addr, serving the initial bundle.
func NewServer(addr string, lg *slog.Logger, m *metrics.Registry, initial *Bundle, rebuild RebuildFunc) *Server {
	s := &Server{lg: lg, metrics: m, rebuild: rebuild, bundle: initial}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/validation", s.getValidation).Methods(http.MethodGet)
	r.HandleFunc("/control/start", s.postStart).Methods(http.MethodPost)
	r.HandleFunc("/control/stop", s.postStop).Methods(http.MethodPost)
	r.HandleFunc("/control/replan", s.postReplan).Methods(http.MethodPost)
	r.HandleFunc("/device/on", s.postDeviceOn).Methods(http.MethodPost)
	r.HandleFunc("/device/off", s.postDeviceOff).Methods(http.MethodPost)
	r.HandleFunc("/device/emergency-stop", s.postEmergencyStop).Methods(http.MethodPost)
	r.HandleFunc("/config", s.postConfig).Methods(http.MethodPost)
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	logged := handlers.LoggingHandler(logWriter{lg}, r)
	s.http = &http.Server{Addr: addr, Handler: logged}
	return s
}

// logWriter adapts *slog.Logger to io.Writer so gorilla/handlers'
// LoggingHandler (which writes Apache-combined-log lines) can share the
// same sink as the rest of the process.
type logWriter struct{ lg *slog.Logger }

func (w logWriter) Write(p []byte) (int, error) {
	w.lg.Info("http_access", "line", string(p))
	return len(p), nil
}

// ListenAndServe starts the HTTP server; it blocks until Shutdown is
// called or a fatal listener error occurs.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown marks the server as shutting down (so control requests arriving
// after this point receive ErrShuttingDown), stops the current scheduler, which
// issues TurnOff regardless of reachability, and closes the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	s.currentBundle().Scheduler.Stop()
	return s.http.Shutdown(ctx)
}

func (s *Server) currentBundle() *Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

func (s *Server) replaceBundle(b *Bundle) {
	s.mu.Lock()
	s.bundle = b
	s.mu.Unlock()
}

func (s *Server) requireNotShuttingDown(w http.ResponseWriter) bool {
	if s.shuttingDown.Load() {
		writeError(w, http.StatusServiceUnavailable, ErrShuttingDown)
		return false
	}
	return true
}

const controlRequestTimeout = 10 * time.Second
