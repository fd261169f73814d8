package storage

import (
	"context"

	"github.com/mathwake/wake-engine/internal/models"
)

// Repository defines the interface for alarm persistence.
// Lookups return (nil, nil) when the record does not exist.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	UpdateUserLastUsed(ctx context.Context, apiKey string) error

	// Alarm sessions (one per user, written on every change)
	SaveSession(ctx context.Context, s *models.AlarmSession) error
	GetSession(ctx context.Context, userID string) (*models.AlarmSession, error)
	ListSessions(ctx context.Context) ([]*models.AlarmSession, error)

	// Stats
	SaveStats(ctx context.Context, st *models.Stats) error
	GetStats(ctx context.Context, userID string) (*models.Stats, error)

	// Attempt history
	CreateAttempt(ctx context.Context, a *models.AttemptRecord) error
	ListAttempts(ctx context.Context, userID string, filters models.AttemptFilters) ([]*models.AttemptRecord, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
