package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mathwake/wake-engine/internal/models"
)

// handleRegister creates a new user and returns the API key exactly once
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	apiKey, err := models.GenerateAPIKey()
	if err != nil {
		slog.Error("failed to generate api key", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register user")
		return
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		APIKey:    apiKey,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateUser(r.Context(), user); err != nil {
		slog.Error("failed to create user", "error", err, "name", req.Name)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register user")
		return
	}

	slog.Info("user registered", "id", user.ID, "name", user.Name)

	respondJSON(w, http.StatusCreated, models.RegisterResponse{
		ID:        user.ID,
		Name:      user.Name,
		APIKey:    apiKey,
		CreatedAt: user.CreatedAt,
	})
}
