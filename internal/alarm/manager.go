package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mathwake/wake-engine/internal/models"
	"github.com/mathwake/wake-engine/internal/presets"
	"github.com/mathwake/wake-engine/internal/storage"
)

// Common errors
var (
	ErrNotIdle        = errors.New("alarm is not idle")
	ErrNotRinging     = errors.New("no quiz is active")
	ErrBadTimeOfDay   = errors.New("time of day must be HH:MM")
	ErrPresetNotFound = errors.New("preset not found")
)

// Manager defines the interface for alarm and quiz state management
type Manager interface {
	Schedule(ctx context.Context, userID, start, end string) (*models.SessionView, error)
	Practice(ctx context.Context, userID, preset string) (*models.SessionView, error)
	Cancel(ctx context.Context, userID string) (*models.SessionView, error)
	Submit(ctx context.Context, userID, answer string) (*models.SubmitResult, error)
	State(ctx context.Context, userID string) (*models.SessionView, error)
	GetStats(ctx context.Context, userID string) (*models.Stats, error)
	ListAttempts(ctx context.Context, userID string, filters models.AttemptFilters) ([]*models.AttemptRecord, error)
	FireDue(ctx context.Context) int
	LoadSessions(ctx context.Context) error
	Subscribe(userID string) (<-chan models.Event, func())
	Ping(ctx context.Context) error
}

// Config holds controller timing. The short delays mirror the UI behaviour:
// incorrect feedback clears so the next attempt is not pre-judged, and a
// solved alarm is dismissed back to idle.
type Config struct {
	FeedbackClearDelay time.Duration
	DismissDelay       time.Duration
}

// session is the live per-user state. gen increments on every mutation and
// keys delayed effects: a timer fired for a stale generation does nothing.
type session struct {
	state  models.AlarmSession
	preset *presets.Preset
	gen    uint64
}

// Controller implements Manager over a storage repository
type Controller struct {
	cfg     Config
	clock   Clock
	repo    storage.Repository
	presets *presets.Loader

	mu       sync.Mutex
	sessions map[string]*session

	subMu sync.RWMutex
	subs  map[string]map[chan models.Event]struct{}
}

// NewController creates a new alarm controller
func NewController(cfg Config, clock Clock, repo storage.Repository, loader *presets.Loader) *Controller {
	if cfg.FeedbackClearDelay <= 0 {
		cfg.FeedbackClearDelay = 1500 * time.Millisecond
	}
	if cfg.DismissDelay <= 0 {
		cfg.DismissDelay = 2 * time.Second
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Controller{
		cfg:      cfg,
		clock:    clock,
		repo:     repo,
		presets:  loader,
		sessions: make(map[string]*session),
		subs:     make(map[string]map[chan models.Event]struct{}),
	}
}

// Ping checks if the controller is operational
func (c *Controller) Ping(ctx context.Context) error {
	if err := c.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// LoadSessions hydrates persisted sessions at startup
func (c *Controller) LoadSessions(ctx context.Context) error {
	stored, err := c.repo.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range stored {
		// A ringing session without a problem cannot be answered; reset it
		// rather than panic on the first Submit.
		if st.Status.IsRinging() && st.Problem == nil {
			slog.Warn("resetting ringing session without a problem", "user", st.UserID)
			st.Status = models.StatusIdle
			st.AttemptCount = 0
			st.HintRevealed = false
			st.Feedback = models.FeedbackNone
		}
		c.sessions[st.UserID] = &session{
			state:  *st,
			preset: c.presets.Default(),
		}
	}

	slog.Info("alarm sessions loaded", "count", len(stored))
	return nil
}

// session returns the live session for a user, creating an idle one if needed.
// Caller must hold c.mu.
func (c *Controller) session(userID string) *session {
	s, ok := c.sessions[userID]
	if !ok {
		s = &session{
			state: models.AlarmSession{
				UserID:    userID,
				Status:    models.StatusIdle,
				Feedback:  models.FeedbackNone,
				UpdatedAt: c.clock.Now(),
			},
			preset: c.presets.Default(),
		}
		c.sessions[userID] = s
	}
	return s
}

// Schedule arms an alarm window and picks a random instant inside it
func (c *Controller) Schedule(ctx context.Context, userID, start, end string) (*models.SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(userID)
	if !s.state.Status.CanSchedule() {
		return nil, ErrNotIdle
	}

	now := c.clock.Now()
	startAt, endAt, err := nextWindow(start, end, now)
	if err != nil {
		return nil, err
	}
	instant := pickInstant(startAt, endAt)

	s.gen++
	s.state.WindowStart = start
	s.state.WindowEnd = end
	s.state.ScheduledAt = &instant
	s.state.Status = models.StatusScheduled
	s.state.UpdatedAt = now

	if err := c.persist(ctx, s); err != nil {
		return nil, err
	}

	view := s.state.View()
	c.publish(userID, "scheduled", view)
	slog.Info("alarm scheduled",
		"user", userID,
		"window_start", start,
		"window_end", end,
		"scheduled_at", instant,
	)
	return view, nil
}

// Practice starts a quiz immediately, bypassing scheduling
func (c *Controller) Practice(ctx context.Context, userID, presetName string) (*models.SessionView, error) {
	p := c.presets.Default()
	if presetName != "" {
		if p = c.presets.Get(presetName); p == nil {
			return nil, ErrPresetNotFound
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(userID)
	if !s.state.Status.CanSchedule() {
		return nil, ErrNotIdle
	}

	c.ring(s, p)
	if err := c.persist(ctx, s); err != nil {
		return nil, err
	}

	view := s.state.View()
	c.publish(userID, "ringing", view)
	slog.Info("practice quiz started", "user", userID, "preset", p.Name)
	return view, nil
}

// ring generates a fresh problem and moves the session to ringing.
// Caller must hold c.mu.
func (c *Controller) ring(s *session, p *presets.Preset) {
	now := c.clock.Now()

	s.gen++
	s.preset = p
	s.state.Problem = generateProblem(p.OperandMin, p.OperandMax, now)
	s.state.AttemptCount = 0
	s.state.HintRevealed = false
	s.state.Feedback = models.FeedbackNone
	s.state.Status = models.StatusRinging
	s.state.UpdatedAt = now
}

// FireDue rings every scheduled session whose instant has passed.
// Called by the trigger watcher once per tick; returns the number fired.
func (c *Controller) FireDue(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	fired := 0
	for userID, s := range c.sessions {
		if !s.state.IsDue(now) {
			continue
		}

		c.ring(s, c.presets.Default())
		if err := c.persist(ctx, s); err != nil {
			slog.Error("failed to persist ringing session", "error", err, "user", userID)
		}

		c.publish(userID, "ringing", s.state.View())
		slog.Info("alarm ringing",
			"user", userID,
			"operand_a", s.state.Problem.OperandA,
			"operand_b", s.state.Problem.OperandB,
		)
		fired++
	}
	return fired
}

// Submit evaluates an answer for the active quiz. Non-numeric input counts
// as incorrect, never as a hard failure.
func (c *Controller) Submit(ctx context.Context, userID, answer string) (*models.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(userID)
	if !s.state.Status.IsRinging() {
		return nil, ErrNotRinging
	}

	now := c.clock.Now()
	given := strings.TrimSpace(answer)
	parsed, parseErr := strconv.Atoi(given)
	correct := parseErr == nil && parsed == s.state.Problem.Answer

	s.gen++

	stats, err := c.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	if correct {
		s.state.Feedback = models.FeedbackCorrect
		s.state.Status = models.StatusSolved
		stats.Streak++
		stats.TotalCorrect++
	} else {
		s.state.Feedback = models.FeedbackIncorrect
		s.state.AttemptCount++
		if s.state.AttemptCount >= s.preset.HintThreshold {
			s.state.HintRevealed = true
		}
		stats.Streak = 0
	}
	s.state.UpdatedAt = now
	stats.UpdatedAt = now

	if err := c.persist(ctx, s); err != nil {
		return nil, err
	}
	if err := c.repo.SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}

	attempt := &models.AttemptRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: s.state.Problem.ID,
		OperandA:  s.state.Problem.OperandA,
		OperandB:  s.state.Problem.OperandB,
		Given:     given,
		Correct:   correct,
		CreatedAt: now,
	}
	if err := c.repo.CreateAttempt(ctx, attempt); err != nil {
		slog.Error("failed to record attempt", "error", err, "user", userID)
	}

	result := &models.SubmitResult{
		Correct:      correct,
		Feedback:     s.state.Feedback,
		AttemptCount: s.state.AttemptCount,
		HintRevealed: s.state.HintRevealed,
		Stats:        stats,
	}
	if s.state.HintRevealed {
		hint := s.state.Problem.Answer
		result.Hint = &hint
	}

	if correct {
		c.publish(userID, "solved", s.state.View())
		c.after(c.cfg.DismissDelay, userID, s.gen, c.dismiss)
		slog.Info("quiz solved", "user", userID, "streak", stats.Streak)
	} else {
		c.publish(userID, "feedback", s.state.View())
		c.after(c.cfg.FeedbackClearDelay, userID, s.gen, c.clearFeedback)
		slog.Info("quiz attempt incorrect",
			"user", userID,
			"attempts", s.state.AttemptCount,
			"hint_revealed", s.state.HintRevealed,
		)
	}

	return result, nil
}

// Cancel forces the session back to idle from any state
func (c *Controller) Cancel(ctx context.Context, userID string) (*models.SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(userID)
	s.gen++
	c.reset(s)

	if err := c.persist(ctx, s); err != nil {
		return nil, err
	}

	view := s.state.View()
	c.publish(userID, "cancelled", view)
	slog.Info("alarm cancelled", "user", userID)
	return view, nil
}

// State returns the current session snapshot
func (c *Controller) State(ctx context.Context, userID string) (*models.SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session(userID).state.View(), nil
}

// GetStats returns the persistent stats record (zero values if none yet)
func (c *Controller) GetStats(ctx context.Context, userID string) (*models.Stats, error) {
	return c.loadStats(ctx, userID)
}

// ListAttempts returns attempt history, newest first
func (c *Controller) ListAttempts(ctx context.Context, userID string, filters models.AttemptFilters) ([]*models.AttemptRecord, error) {
	return c.repo.ListAttempts(ctx, userID, filters)
}

// reset clears everything back to idle. Caller must hold c.mu.
func (c *Controller) reset(s *session) {
	s.state.Status = models.StatusIdle
	s.state.ScheduledAt = nil
	s.state.Problem = nil
	s.state.AttemptCount = 0
	s.state.HintRevealed = false
	s.state.Feedback = models.FeedbackNone
	s.state.UpdatedAt = c.clock.Now()
}

// dismiss completes a solved alarm after the dismissal delay. gen must match
// the generation the timer was armed with; anything else means the session
// moved on and the dismissal is stale.
func (c *Controller) dismiss(userID string, gen uint64) {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	if !ok || s.gen != gen || s.state.Status != models.StatusSolved {
		c.mu.Unlock()
		return
	}
	s.gen++
	c.reset(s)
	view := s.state.View()
	c.persistBackground(s)
	c.mu.Unlock()

	c.publish(userID, "dismissed", view)
	slog.Info("alarm dismissed", "user", userID)
}

// clearFeedback resets incorrect feedback so the next attempt is not pre-judged
func (c *Controller) clearFeedback(userID string, gen uint64) {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	if !ok || s.gen != gen || !s.state.Status.IsRinging() {
		c.mu.Unlock()
		return
	}
	s.gen++
	s.state.Feedback = models.FeedbackNone
	s.state.UpdatedAt = c.clock.Now()
	view := s.state.View()
	c.persistBackground(s)
	c.mu.Unlock()

	c.publish(userID, "feedback", view)
}

// after schedules fn keyed to the session generation. The callback re-checks
// the generation under its own lock, so a mutation between the timer firing
// and the callback running still drops the stale effect.
func (c *Controller) after(d time.Duration, userID string, gen uint64, fn func(string, uint64)) {
	time.AfterFunc(d, func() {
		fn(userID, gen)
	})
}

// loadStats reads the stats record, returning zero values when absent
func (c *Controller) loadStats(ctx context.Context, userID string) (*models.Stats, error) {
	stats, err := c.repo.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	if stats == nil {
		stats = &models.Stats{UserID: userID, UpdatedAt: c.clock.Now()}
	}
	return stats, nil
}

// persist writes the session record. Caller must hold c.mu.
func (c *Controller) persist(ctx context.Context, s *session) error {
	snapshot := s.state
	if err := c.repo.SaveSession(ctx, &snapshot); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// persistBackground writes the session from a timer callback, where there is
// no request context. Errors are logged, not surfaced.
func (c *Controller) persistBackground(s *session) {
	snapshot := s.state
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.SaveSession(ctx, &snapshot); err != nil {
			slog.Error("failed to save session", "error", err, "user", snapshot.UserID)
		}
	}()
}

// Subscribe registers an event channel for a user. The returned func
// unsubscribes and closes the channel.
func (c *Controller) Subscribe(userID string) (<-chan models.Event, func()) {
	ch := make(chan models.Event, 8)

	c.subMu.Lock()
	if c.subs[userID] == nil {
		c.subs[userID] = make(map[chan models.Event]struct{})
	}
	c.subs[userID][ch] = struct{}{}
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		if set, ok := c.subs[userID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(c.subs, userID)
			}
		}
		c.subMu.Unlock()
	}
	return ch, cancel
}

// publish sends an event to every subscriber of a user, dropping when the
// receiver is slow
func (c *Controller) publish(userID, eventType string, view *models.SessionView) {
	event := models.Event{
		Type:    eventType,
		Session: view,
		At:      c.clock.Now(),
	}

	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for ch := range c.subs[userID] {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping event for slow subscriber", "user", userID, "type", eventType)
		}
	}
}
