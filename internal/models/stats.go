package models

import "time"

// Stats is the persistent per-user quiz record. Streak resets to 0 on any
// incorrect answer; TotalCorrect only ever grows.
type Stats struct {
	UserID       string    `json:"user_id"`
	Streak       int       `json:"streak"`
	TotalCorrect int       `json:"total_correct"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AttemptRecord is one submitted answer, kept for reports
type AttemptRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProblemID string    `json:"problem_id"`
	OperandA  int       `json:"operand_a"`
	OperandB  int       `json:"operand_b"`
	Given     string    `json:"given"`
	Correct   bool      `json:"correct"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptFilters limits attempt history queries
type AttemptFilters struct {
	Limit  int
	Offset int
}
