package api

import (
	"log/slog"
	"net/http"
)

// handleGenerateAvatar kicks off best-effort avatar generation. The call is
// fire-and-forget: a failed generation leaves the avatar absent and nothing
// else.
func (s *Server) handleGenerateAvatar(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	s.avatars.EnsureAsync(user.ID)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "generating",
	})
}

// handleGetAvatar returns the cached avatar payload, or 404 when none exists
func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	image, err := s.avatars.Get(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to read avatar cache", "error", err, "user", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read avatar")
		return
	}

	if image == nil {
		respondError(w, http.StatusNotFound, "not_found", "no avatar generated yet")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image); err != nil {
		slog.Error("failed to write avatar response", "error", err)
	}
}
