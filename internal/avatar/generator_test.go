package avatar

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGeneratorGenerate(t *testing.T) {
	payload := []byte("fake-png-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Prompt != "a sleepy owl" {
			t.Errorf("unexpected prompt: %q", req.Prompt)
		}

		json.NewEncoder(w).Encode(map[string]string{
			"image": base64.StdEncoding.EncodeToString(payload),
		})
	}))
	defer server.Close()

	gen := NewHTTPGenerator(server.URL, 5*time.Second)
	image, err := gen.Generate(context.Background(), "a sleepy owl")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(image) != string(payload) {
		t.Errorf("payload mismatch: got %q", image)
	}
}

func TestHTTPGeneratorErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewHTTPGenerator(server.URL, 5*time.Second)
	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestHTTPGeneratorEmptyImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"image": ""})
	}))
	defer server.Close()

	gen := NewHTTPGenerator(server.URL, 5*time.Second)
	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error on empty payload")
	}
}
