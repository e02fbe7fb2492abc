package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/quietcut/quietcut/internal/audio"
	"github.com/quietcut/quietcut/internal/types"
)

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// parseJSON reads and parses JSON from request body.
// Returns parsed value and true on success, zero value and false on failure.
func parseJSON[T any](s *Server, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := s.readJSON(r, &v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return v, false
	}
	return v, true
}

// requirePost rejects non-POST requests with 405.
func (s *Server) requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// handleAPIStatus returns the session status.
// GET /api/session/status
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.controller.Status())
}

// handleAPIStart starts calibration followed by recording.
// POST /api/session/start
func (s *Server) handleAPIStart(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	if !s.ffmpegAvailable {
		s.writeError(w, http.StatusServiceUnavailable, "FFmpeg is not available")
		return
	}
	if err := s.controller.StartCalibration(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "calibrating"})
}

// handleAPIPause pauses the session manually.
// POST /api/session/pause
func (s *Server) handleAPIPause(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	if err := s.controller.ManualPause(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// handleAPIResume resumes a paused session.
// POST /api/session/resume
func (s *Server) handleAPIResume(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	if err := s.controller.ManualResume(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "recording"})
}

// handleAPIStop stops the session and returns the finalized artifact.
// POST /api/session/stop
func (s *Server) handleAPIStop(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	if err := s.controller.Stop(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	status := s.controller.Status()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   string(status.State),
		"artifact": status.Artifact,
	})
}

// handleAPIReset returns a stopped session to idle.
// POST /api/session/reset
func (s *Server) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	if err := s.controller.Reset(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
}

// tightnessRequest is the REST body for /api/session/tightness.
type tightnessRequest struct {
	Tightness int `json:"tightness"`
}

// handleAPITightness adjusts the pause tightness.
// POST /api/session/tightness
func (s *Server) handleAPITightness(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	req, ok := parseJSON[tightnessRequest](s, w, r)
	if !ok {
		return
	}
	if req.Tightness < types.MinTightness || req.Tightness > types.MaxTightness {
		s.writeError(w, http.StatusBadRequest, "tightness must be between -5 and 5")
		return
	}
	if err := s.controller.SetPauseTightness(req.Tightness); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"tightness": req.Tightness})
}

// handleAPIDevices lists available audio input devices.
// GET /api/devices
func (s *Server) handleAPIDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	devices := make([]types.AudioDevice, 0)
	for _, d := range audio.Devices() {
		devices = append(devices, types.AudioDevice{ID: d.ID, Name: d.Name})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"devices":  devices,
		"platform": runtime.GOOS,
	})
}
