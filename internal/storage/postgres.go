package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathwake/wake-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser creates a new user record
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, name, api_key, is_active, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		u.APIKey,
		u.IsActive,
		u.CreatedAt,
		u.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByAPIKey retrieves a user by API key, returning nil when not found
func (r *PostgresRepository) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at
		FROM users
		WHERE api_key = $1
	`

	var u models.User
	var lastUsed *time.Time
	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&u.ID,
		&u.Name,
		&u.APIKey,
		&u.IsActive,
		&u.CreatedAt,
		&lastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.LastUsedAt = lastUsed

	return &u, nil
}

// UpdateUserLastUsed updates the last_used_at timestamp for a user
func (r *PostgresRepository) UpdateUserLastUsed(ctx context.Context, apiKey string) error {
	query := `UPDATE users SET last_used_at = NOW() WHERE api_key = $1`

	if _, err := r.pool.Exec(ctx, query, apiKey); err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	return nil
}

// SaveSession upserts the per-user alarm session
func (r *PostgresRepository) SaveSession(ctx context.Context, s *models.AlarmSession) error {
	problemJSON, err := marshalProblem(s.Problem)
	if err != nil {
		return fmt.Errorf("failed to marshal problem: %w", err)
	}

	query := `
		INSERT INTO alarm_sessions (user_id, status, window_start, window_end, scheduled_at, problem, attempt_count, hint_revealed, feedback, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			scheduled_at = EXCLUDED.scheduled_at,
			problem = EXCLUDED.problem,
			attempt_count = EXCLUDED.attempt_count,
			hint_revealed = EXCLUDED.hint_revealed,
			feedback = EXCLUDED.feedback,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		s.UserID,
		string(s.Status),
		nullString(s.WindowStart),
		nullString(s.WindowEnd),
		s.ScheduledAt,
		problemJSON,
		s.AttemptCount,
		s.HintRevealed,
		string(s.Feedback),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by user ID, returning nil when not found
func (r *PostgresRepository) GetSession(ctx context.Context, userID string) (*models.AlarmSession, error) {
	query := `
		SELECT user_id, status, window_start, window_end, scheduled_at, problem, attempt_count, hint_revealed, feedback, updated_at
		FROM alarm_sessions
		WHERE user_id = $1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return s, nil
}

// ListSessions retrieves all persisted sessions
func (r *PostgresRepository) ListSessions(ctx context.Context) ([]*models.AlarmSession, error) {
	query := `
		SELECT user_id, status, window_start, window_end, scheduled_at, problem, attempt_count, hint_revealed, feedback, updated_at
		FROM alarm_sessions
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.AlarmSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// SaveStats upserts the per-user stats record
func (r *PostgresRepository) SaveStats(ctx context.Context, st *models.Stats) error {
	query := `
		INSERT INTO stats (user_id, streak, total_correct, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			streak = EXCLUDED.streak,
			total_correct = EXCLUDED.total_correct,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, st.UserID, st.Streak, st.TotalCorrect, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}

	return nil
}

// GetStats retrieves stats by user ID, returning nil when not found
func (r *PostgresRepository) GetStats(ctx context.Context, userID string) (*models.Stats, error) {
	query := `
		SELECT user_id, streak, total_correct, updated_at
		FROM stats
		WHERE user_id = $1
	`

	var st models.Stats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&st.UserID,
		&st.Streak,
		&st.TotalCorrect,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &st, nil
}

// CreateAttempt inserts one attempt history row
func (r *PostgresRepository) CreateAttempt(ctx context.Context, a *models.AttemptRecord) error {
	query := `
		INSERT INTO attempts (id, user_id, problem_id, operand_a, operand_b, given, correct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.ProblemID,
		a.OperandA,
		a.OperandB,
		a.Given,
		a.Correct,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

// ListAttempts retrieves attempt history, newest first
func (r *PostgresRepository) ListAttempts(ctx context.Context, userID string, filters models.AttemptFilters) ([]*models.AttemptRecord, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50 // default
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, user_id, problem_id, operand_a, operand_b, given, correct, created_at
		FROM attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.AttemptRecord
	for rows.Next() {
		var a models.AttemptRecord
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.ProblemID,
			&a.OperandA,
			&a.OperandB,
			&a.Given,
			&a.Correct,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// Helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.AlarmSession, error) {
	var (
		s           models.AlarmSession
		status      string
		feedback    string
		windowStart *string
		windowEnd   *string
		scheduledAt *time.Time
		problemJSON []byte
	)

	if err := row.Scan(
		&s.UserID,
		&status,
		&windowStart,
		&windowEnd,
		&scheduledAt,
		&problemJSON,
		&s.AttemptCount,
		&s.HintRevealed,
		&feedback,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.Status = models.Status(status)
	s.Feedback = models.Feedback(feedback)
	if windowStart != nil {
		s.WindowStart = *windowStart
	}
	if windowEnd != nil {
		s.WindowEnd = *windowEnd
	}
	s.ScheduledAt = scheduledAt

	if len(problemJSON) > 0 {
		var p models.Problem
		if err := json.Unmarshal(problemJSON, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal problem: %w", err)
		}
		if p.ID != "" {
			s.Problem = &p
		}
	}

	return &s, nil
}

func marshalProblem(p *models.Problem) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
