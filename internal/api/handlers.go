package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mathwake/wake-engine/internal/alarm"
	"github.com/mathwake/wake-engine/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check if the alarm controller is ready
	if err := s.manager.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Alarm handlers

func (s *Server) handleGetAlarm(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	view, err := s.manager.State(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to get alarm state", "error", err, "user", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get alarm state")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Start == "" || req.End == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "start and end are required")
		return
	}

	view, err := s.manager.Schedule(r.Context(), user.ID, req.Start, req.End)
	if err != nil {
		switch {
		case errors.Is(err, alarm.ErrNotIdle):
			respondError(w, http.StatusConflict, "not_idle", "an alarm is already armed; cancel it first")
		case errors.Is(err, alarm.ErrBadTimeOfDay):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			slog.Error("failed to schedule alarm", "error", err, "user", user.ID)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to schedule alarm")
		}
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	// Body is optional; an empty body means the default preset
	var req models.PracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.manager.Practice(r.Context(), user.ID, req.Preset)
	if err != nil {
		switch {
		case errors.Is(err, alarm.ErrNotIdle):
			respondError(w, http.StatusConflict, "not_idle", "an alarm is already armed; cancel it first")
		case errors.Is(err, alarm.ErrPresetNotFound):
			respondError(w, http.StatusNotFound, "preset_not_found", "preset not found")
		default:
			slog.Error("failed to start practice", "error", err, "user", user.ID)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to start practice")
		}
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	view, err := s.manager.Cancel(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to cancel alarm", "error", err, "user", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to cancel alarm")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := s.manager.Submit(r.Context(), user.ID, req.Answer)
	if err != nil {
		if errors.Is(err, alarm.ErrNotRinging) {
			respondError(w, http.StatusConflict, "not_ringing", "no quiz is active")
			return
		}
		slog.Error("failed to submit answer", "error", err, "user", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to submit answer")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Stats handlers

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	stats, err := s.manager.GetStats(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to get stats", "error", err, "user", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	filters := models.AttemptFilters{
		Limit:  50, // default
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	attempts, err := s.manager.ListAttempts(r.Context(), user.ID, filters)
	if err != nil {
		slog.Error("failed to list attempts", "error", err, "user", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list attempts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

// Preset handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets := s.presetLoader.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": presets,
		"total":   len(presets),
	})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "preset name is required")
		return
	}

	preset := s.presetLoader.Get(name)
	if preset == nil {
		respondError(w, http.StatusNotFound, "not_found", "preset not found")
		return
	}

	respondJSON(w, http.StatusOK, preset)
}
