package avatar

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator produces decorative avatar art from a text prompt. Failures are
// expected and never affect alarm functionality; callers log and move on.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// HTTPGenerator calls an external image-generation API
type HTTPGenerator struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPGenerator creates a generator for the given endpoint
func NewHTTPGenerator(endpoint string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPGenerator{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Image string `json:"image"` // base64-encoded payload
}

// Generate posts the prompt and returns the decoded image payload
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
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

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if gr.Image == "" {
		return nil, fmt.Errorf("empty image payload")
	}

	image, err := base64.StdEncoding.DecodeString(gr.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return image, nil
}
