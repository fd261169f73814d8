package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// User represents an authenticated API user
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	APIKey     string     `json:"-"` // Never serialize
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// MaskedAPIKey returns first 8 characters of the API key for logging
func (u *User) MaskedAPIKey() string {
	if len(u.APIKey) < 8 {
		return "***"
	}
	return u.APIKey[:8] + "..."
}

// GenerateAPIKey creates a cryptographically random key with a "wk_" prefix
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "wk_" + hex.EncodeToString(bytes), nil
}

// RegisterRequest creates a new user
type RegisterRequest struct {
	Name string `json:"name"`
}

// RegisterResponse returns the API key exactly once, at registration
type RegisterResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}
