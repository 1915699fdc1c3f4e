package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Duds/hydro-automation/internal/config"
	"github.com/Duds/hydro-automation/internal/device"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
}

// statusResponse is the GET /status payload: the scheduler snapshot plus
// the device and environment views.
type statusResponse struct {
	Running            bool    `json:"running"`
	State              string  `json:"state"`
	NextEventTime      *string `json:"next_event_time,omitempty"`
	TimeUntilNextCycle *string `json:"time_until_next_cycle,omitempty"`
	CurrentPeriod      *string `json:"current_period,omitempty"`
	Device             struct {
		Reachable    bool    `json:"reachable"`
		On           *bool   `json:"on"`
		LastVerified *string `json:"last_verified,omitempty"`
		Address      string  `json:"address"`
	} `json:"device"`
	Environment struct {
		TemperatureC      *float64 `json:"temperature_c"`
		HumidityPct       *float64 `json:"humidity_pct"`
		StationID         string   `json:"station_id,omitempty"`
		StationName       string   `json:"station_name,omitempty"`
		Sunrise           *string  `json:"sunrise,omitempty"`
		Sunset            *string  `json:"sunset,omitempty"`
		AdaptationEnabled bool     `json:"adaptation_enabled"`
		AdaptiveEnabled   bool     `json:"adaptive_enabled"`
	} `json:"environment"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	b := s.currentBundle()
	st := b.Scheduler.Status()
	snap := b.Device.Snapshot()

	resp := statusResponse{Running: st.Running, State: st.State.String()}
	if st.NextOnTime != nil {
		f := st.NextOnTime.Format()
		resp.NextEventTime = &f
	}
	if st.TimeUntilNextCycle != nil {
		d := st.TimeUntilNextCycle.String()
		resp.TimeUntilNextCycle = &d
	}
	resp.CurrentPeriod = st.CurrentPeriod

	resp.Device.Reachable = snap.Reachable
	resp.Device.Address = snap.Address
	if snap.On != device.Unknown {
		on := snap.On == device.On
		resp.Device.On = &on
	}
	if !snap.LastVerified.IsZero() {
		ts := snap.LastVerified.Format("2006-01-02T15:04:05Z07:00")
		resp.Device.LastVerified = &ts
	}

	if b.Env != nil {
		view := b.Env.View()
		resp.Environment.TemperatureC = view.TemperatureC
		resp.Environment.HumidityPct = view.HumidityPct
		resp.Environment.StationID = view.StationID
		resp.Environment.StationName = view.StationName
		resp.Environment.AdaptationEnabled = view.AdaptationEnabled
		if !view.Daylight.Sunrise.IsZero() {
			sr := view.Daylight.Sunrise.Format("15:04")
			ss := view.Daylight.Sunset.Format("15:04")
			resp.Environment.Sunrise = &sr
			resp.Environment.Sunset = &ss
		}
	}
	if _, ok := b.Scheduler.(Validator); ok {
		resp.Environment.AdaptiveEnabled = true
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getValidation(w http.ResponseWriter, r *http.Request) {
	b := s.currentBundle()
	v, ok := b.Scheduler.(Validator)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	report, ok := v.Validation()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "report": report})
}

func (s *Server) postStart(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotShuttingDown(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), controlRequestTimeout)
	defer cancel()
	if err := s.currentBundle().Scheduler.Start(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "started"})
}

func (s *Server) postStop(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotShuttingDown(w) {
		return
	}
	s.currentBundle().Scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"result": "stopped"})
}

// replanRequest carries a literal cycle list for strategies that accept
// one. An adaptive strategy rarely sees this path in practice (the
// synthesizer owns its plan), but Replan itself is strategy-agnostic and
// SetPlan is an idempotent install either way.
type replanRequest struct {
	Cycles []struct {
		OnTime     string  `json:"on_time"`
		OffMinutes float64 `json:"off_minutes"`
	} `json:"cycles"`
	FloodMinutes float64 `json:"flood_minutes"`
}

func (s *Server) postReplan(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotShuttingDown(w) {
		return
	}
	b := s.currentBundle()
	rp, ok := b.Scheduler.(Replanner)
	if !ok {
		writeError(w, http.StatusConflict, errStrategyNotReplannable)
		return
	}
	var req replanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	plan, err := buildPlanFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := rp.SetPlan(plan); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "replanned"})
}

func (s *Server) postDeviceOn(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotShuttingDown(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), controlRequestTimeout)
	defer cancel()
	if err := s.currentBundle().Device.TurnOn(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "on"})
}

func (s *Server) postDeviceOff(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotShuttingDown(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), controlRequestTimeout)
	defer cancel()
	if err := s.currentBundle().Device.TurnOff(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "off"})
}

// postEmergencyStop turns the device off and then stops the scheduler. It
// succeeds even when the device is unreachable: OFF is issued best-effort
// and a warning is returned rather than an error, and scheduling always
// stops.
func (s *Server) postEmergencyStop(w http.ResponseWriter, r *http.Request) {
	b := s.currentBundle()
	ctx, cancel := context.WithTimeout(r.Context(), controlRequestTimeout)
	defer cancel()
	warning := ""
	if err := b.Device.TurnOff(ctx); err != nil {
		warning = err.Error()
		s.lg.Warn("emergency_stop_device_off_failed", "error", err)
	}
	b.Scheduler.Stop()
	resp := map[string]string{"result": "stopped"}
	if warning != "" {
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}

// postConfig replaces the active configuration. It validates the full
// document, rejecting (among other things) a literal cycle list supplied
// alongside enabled adaptive synthesis, stops the current scheduler, and swaps in
// a freshly built Bundle.
func (s *Server) postConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotShuttingDown(w) {
		return
	}
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := config.Validate(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.currentBundle().Scheduler.Stop()
	next, err := s.rebuild(&cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), controlRequestTimeout)
	defer cancel()
	if err := next.Scheduler.Start(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.replaceBundle(next)
	writeJSON(w, http.StatusOK, map[string]string{"result": "reconfigured"})
}
