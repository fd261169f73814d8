package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mathwake/wake-engine/internal/alarm"
	"github.com/mathwake/wake-engine/internal/avatar"
	"github.com/mathwake/wake-engine/internal/config"
	"github.com/mathwake/wake-engine/internal/presets"
	"github.com/mathwake/wake-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	manager        alarm.Manager
	presetLoader   *presets.Loader
	avatars        *avatar.Service
	repo           storage.Repository
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	manager alarm.Manager,
	loader *presets.Loader,
	avatars *avatar.Service,
	repo storage.Repository,
) *Server {
	s := &Server{
		config:         cfg,
		manager:        manager,
		presetLoader:   loader,
		avatars:        avatars,
		repo:           repo,
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration (the browser UI is the primary caller)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// Registration is public; the API key is returned exactly once
	r.Post("/api/v1/users", s.handleRegister)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Alarm / quiz controls
		r.Route("/alarm", func(r chi.Router) {
			r.Get("/", s.handleGetAlarm)
			r.Post("/schedule", s.handleSchedule)
			r.Post("/practice", s.handlePractice)
			r.Post("/cancel", s.handleCancel)
			r.Post("/submit", s.handleSubmit)
			r.Get("/events", s.handleEventsWS)
		})

		// Stats and history
		r.Get("/stats", s.handleGetStats)
		r.Get("/attempts", s.handleListAttempts)

		// Difficulty presets
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.handleListPresets)
			r.Get("/{name}", s.handleGetPreset)
		})

		// Avatar
		r.Post("/avatar", s.handleGenerateAvatar)
		r.Get("/avatar", s.handleGetAvatar)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
