package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mathwake/wake-engine/internal/models"
)

// MemoryRepository implements Repository in memory. It backs tests and
// single-process development runs where Postgres is not available.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]*models.User // keyed by API key
	sessions map[string]*models.AlarmSession
	stats    map[string]*models.Stats
	attempts map[string][]*models.AttemptRecord
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.AlarmSession),
		stats:    make(map[string]*models.Stats),
		attempts: make(map[string][]*models.AttemptRecord),
	}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.APIKey] = &cp
	return nil
}

func (r *MemoryRepository) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[apiKey]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) UpdateUserLastUsed(ctx context.Context, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[apiKey]; ok {
		now := time.Now()
		u.LastUsedAt = &now
	}
	return nil
}

func (r *MemoryRepository) SaveSession(ctx context.Context, s *models.AlarmSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	if s.Problem != nil {
		p := *s.Problem
		cp.Problem = &p
	}
	if s.ScheduledAt != nil {
		t := *s.ScheduledAt
		cp.ScheduledAt = &t
	}
	r.sessions[s.UserID] = &cp
	return nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, userID string) (*models.AlarmSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context) ([]*models.AlarmSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.AlarmSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		cp := *s
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemoryRepository) SaveStats(ctx context.Context, st *models.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *st
	r.stats[st.UserID] = &cp
	return nil
}

func (r *MemoryRepository) GetStats(ctx context.Context, userID string) (*models.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.stats[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (r *MemoryRepository) CreateAttempt(ctx context.Context, a *models.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts[a.UserID] = append(r.attempts[a.UserID], &cp)
	return nil
}

func (r *MemoryRepository) ListAttempts(ctx context.Context, userID string, filters models.AttemptFilters) ([]*models.AttemptRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.attempts[userID]
	result := make([]*models.AttemptRecord, 0, len(all))
	for _, a := range all {
		cp := *a
		result = append(result, &cp)
	}

	// Newest first, like the SQL implementation
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return nil, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
