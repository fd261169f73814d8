package models

import (
	"time"
)

// Status represents the current state of a user's alarm session
type Status string

const (
	StatusIdle      Status = "idle"      // No alarm armed
	StatusScheduled Status = "scheduled" // Instant picked inside the window, waiting
	StatusRinging   Status = "ringing"   // Alarm fired, quiz must be solved
	StatusSolved    Status = "solved"    // Correct answer given, dismissal pending
)

// CanSchedule returns true if a new window may be armed from this state
func (s Status) CanSchedule() bool {
	return s == StatusIdle
}

// IsRinging returns true if the quiz is currently active
func (s Status) IsRinging() bool {
	return s == StatusRinging
}

// Feedback is the judgement shown for the most recent submission
type Feedback string

const (
	FeedbackNone      Feedback = "none"
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

// AlarmSession is the per-user alarm and quiz state.
// WindowStart/WindowEnd are times of day ("HH:MM"); ScheduledAt, when set,
// lies inside the next occurrence of that window from the moment it was armed.
type AlarmSession struct {
	UserID       string     `json:"user_id"`
	Status       Status     `json:"status"`
	WindowStart  string     `json:"window_start,omitempty"`
	WindowEnd    string     `json:"window_end,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Problem      *Problem   `json:"problem,omitempty"`
	AttemptCount int        `json:"attempt_count"`
	HintRevealed bool       `json:"hint_revealed"`
	Feedback     Feedback   `json:"feedback"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDue checks whether a scheduled alarm should ring at the given instant
func (s *AlarmSession) IsDue(now time.Time) bool {
	return s.Status == StatusScheduled && s.ScheduledAt != nil && now.After(*s.ScheduledAt)
}

// View builds the outward-facing snapshot of the session.
// The problem's answer is withheld unless the hint has been revealed.
func (s *AlarmSession) View() *SessionView {
	v := &SessionView{
		Status:       s.Status,
		WindowStart:  s.WindowStart,
		WindowEnd:    s.WindowEnd,
		ScheduledAt:  s.ScheduledAt,
		AttemptCount: s.AttemptCount,
		HintRevealed: s.HintRevealed,
		Feedback:     s.Feedback,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Problem != nil {
		v.Problem = &ProblemView{
			ID:       s.Problem.ID,
			OperandA: s.Problem.OperandA,
			OperandB: s.Problem.OperandB,
		}
		if s.HintRevealed {
			answer := s.Problem.Answer
			v.Hint = &answer
		}
	}
	return v
}

// SessionView is the API representation of an alarm session
type SessionView struct {
	Status       Status       `json:"status"`
	WindowStart  string       `json:"window_start,omitempty"`
	WindowEnd    string       `json:"window_end,omitempty"`
	ScheduledAt  *time.Time   `json:"scheduled_at,omitempty"`
	Problem      *ProblemView `json:"problem,omitempty"`
	Hint         *int         `json:"hint,omitempty"`
	AttemptCount int          `json:"attempt_count"`
	HintRevealed bool         `json:"hint_revealed"`
	Feedback     Feedback     `json:"feedback"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Event is pushed to websocket subscribers on every session change
type Event struct {
	Type    string       `json:"type"` // scheduled | ringing | feedback | solved | dismissed | cancelled
	Session *SessionView `json:"session"`
	At      time.Time    `json:"at"`
}

// ScheduleRequest arms an alarm window
type ScheduleRequest struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`   // "HH:MM"
}

// PracticeRequest starts a practice quiz without scheduling
type PracticeRequest struct {
	Preset string `json:"preset,omitempty"`
}

// SubmitRequest carries the user's answer text
type SubmitRequest struct {
	Answer string `json:"answer"`
}

// SubmitResult is returned after evaluating a submission
type SubmitResult struct {
	Correct      bool     `json:"correct"`
	Feedback     Feedback `json:"feedback"`
	AttemptCount int      `json:"attempt_count"`
	HintRevealed bool     `json:"hint_revealed"`
	Hint         *int     `json:"hint,omitempty"`
	Stats        *Stats   `json:"stats,omitempty"`
}
