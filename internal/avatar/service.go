package avatar

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store abstracts the avatar cache
type Store interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Set(ctx context.Context, userID string, image []byte) error
}

// Service coordinates best-effort avatar generation: generation runs in the
// background, failures are logged and surfaced only as "no avatar".
type Service struct {
	generator Generator
	store     Store
	prompt    string

	mu      sync.Mutex
	pending map[string]bool
}

// NewService creates an avatar service with a fixed generation prompt
func NewService(generator Generator, store Store, prompt string) *Service {
	return &Service{
		generator: generator,
		store:     store,
		prompt:    prompt,
		pending:   make(map[string]bool),
	}
}

// Get returns the cached avatar payload, or nil when none exists yet
func (s *Service) Get(ctx context.Context, userID string) ([]byte, error) {
	return s.store.Get(ctx, userID)
}

// EnsureAsync kicks off generation for a user unless an avatar is already
// cached or a generation is in flight. Never blocks the caller.
func (s *Service) EnsureAsync(userID string) {
	s.mu.Lock()
	if s.pending[userID] {
		s.mu.Unlock()
		return
	}
	s.pending[userID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.pending, userID)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		cached, err := s.store.Get(ctx, userID)
		if err != nil {
			slog.Error("failed to check avatar cache", "error", err, "user", userID)
			return
		}
		if cached != nil {
			return
		}

		image, err := s.generator.Generate(ctx, s.prompt)
		if err != nil {
			slog.Warn("avatar generation failed", "error", err, "user", userID)
			return
		}

		if err := s.store.Set(ctx, userID, image); err != nil {
			slog.Error("failed to cache avatar", "error", err, "user", userID)
			return
		}

		slog.Info("avatar generated", "user", userID, "bytes", len(image))
	}()
}
