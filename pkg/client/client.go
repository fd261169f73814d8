package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mathwake/wake-engine/internal/presets"
)

// Client is a Go SDK for the wake-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new wake-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Session represents an alarm session response
type Session struct {
	Status       string     `json:"status"`
	WindowStart  string     `json:"window_start,omitempty"`
	WindowEnd    string     `json:"window_end,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Problem      *Problem   `json:"problem,omitempty"`
	Hint         *int       `json:"hint,omitempty"`
	AttemptCount int        `json:"attempt_count"`
	HintRevealed bool       `json:"hint_revealed"`
	Feedback     string     `json:"feedback"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Problem is the active multiplication question (answer withheld)
type Problem struct {
	ID       string `json:"id"`
	OperandA int    `json:"operand_a"`
	OperandB int    `json:"operand_b"`
}

// Stats is the persistent quiz record
type Stats struct {
	UserID       string    `json:"user_id"`
	Streak       int       `json:"streak"`
	TotalCorrect int       `json:"total_correct"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SubmitResult is returned after evaluating an answer
type SubmitResult struct {
	Correct      bool   `json:"correct"`
	Feedback     string `json:"feedback"`
	AttemptCount int    `json:"attempt_count"`
	HintRevealed bool   `json:"hint_revealed"`
	Hint         *int   `json:"hint,omitempty"`
	Stats        *Stats `json:"stats,omitempty"`
}

// Attempt is one submitted answer from the history
type Attempt struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	OperandA  int       `json:"operand_a"`
	OperandB  int       `json:"operand_b"`
	Given     string    `json:"given"`
	Correct   bool      `json:"correct"`
	CreatedAt time.Time `json:"created_at"`
}

// Registration is returned when creating a user; the API key appears only here
type Registration struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

type scheduleRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type practiceRequest struct {
	Preset string `json:"preset,omitempty"`
}

type submitRequest struct {
	Answer string `json:"answer"`
}

type registerRequest struct {
	Name string `json:"name"`
}

// Register creates a new user and returns the credentials
func (c *Client) Register(ctx context.Context, name string) (*Registration, error) {
	body, err := json.Marshal(registerRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/users", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var reg Registration
	if err := unwrap(resp, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetAlarm returns the current alarm session
func (c *Client) GetAlarm(ctx context.Context) (*Session, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/alarm", nil)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := unwrap(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Schedule arms an alarm window ("HH:MM" times of day)
func (c *Client) Schedule(ctx context.Context, start, end string) (*Session, error) {
	body, err := json.Marshal(scheduleRequest{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/alarm/schedule", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var session Session
	if err := unwrap(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Practice starts a quiz immediately; preset may be empty for the default
func (c *Client) Practice(ctx context.Context, preset string) (*Session, error) {
	body, err := json.Marshal(practiceRequest{Preset: preset})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/alarm/practice", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var session Session
	if err := unwrap(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Cancel forces the alarm back to idle
func (c *Client) Cancel(ctx context.Context) (*Session, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/v1/alarm/cancel", nil)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := unwrap(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Submit evaluates an answer for the active quiz
func (c *Client) Submit(ctx context.Context, answer string) (*SubmitResult, error) {
	body, err := json.Marshal(submitRequest{Answer: answer})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/alarm/submit", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	if err := unwrap(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStats returns the persistent stats record
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats Stats
	if err := unwrap(resp, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListAttempts returns attempt history, newest first
func (c *Client) ListAttempts(ctx context.Context, limit, offset int) ([]*Attempt, error) {
	path := "/api/v1/attempts"
	if limit > 0 || offset > 0 {
		path += fmt.Sprintf("?limit=%d&offset=%d", limit, offset)
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Attempts []*Attempt `json:"attempts"`
		Total    int        `json:"total"`
	}
	if err := unwrap(resp, &data); err != nil {
		return nil, err
	}
	return data.Attempts, nil
}

// ListPresets retrieves all available difficulty presets
func (c *Client) ListPresets(ctx context.Context) ([]*presets.Preset, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/presets", nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Presets []*presets.Preset `json:"presets"`
		Total   int               `json:"total"`
	}
	if err := unwrap(resp, &data); err != nil {
		return nil, err
	}
	return data.Presets, nil
}

// GenerateAvatar requests best-effort avatar generation
func (c *Client) GenerateAvatar(ctx context.Context) error {
	_, err := c.doRequest(ctx, "POST", "/api/v1/avatar", nil)
	return err
}

// GetAvatar returns the cached avatar payload, or nil when none exists
func (c *Client) GetAvatar(ctx context.Context) ([]byte, error) {
	url := c.baseURL + "/api/v1/avatar"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// unwrap decodes the standard response envelope into target
func unwrap(resp []byte, target interface{}) error {
	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error != nil {
			return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if target != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, target); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
