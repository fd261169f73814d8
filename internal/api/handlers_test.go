package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/mathwake/wake-engine/internal/alarm"
	"github.com/mathwake/wake-engine/internal/avatar"
	"github.com/mathwake/wake-engine/internal/config"
	"github.com/mathwake/wake-engine/internal/models"
	"github.com/mathwake/wake-engine/internal/presets"
	"github.com/mathwake/wake-engine/internal/storage"
)

// testEnv wires a full server over in-memory storage
type testEnv struct {
	server     *Server
	controller *alarm.Controller
	repo       *storage.MemoryRepository
	apiKey     string
	userID     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := storage.NewMemoryRepository()
	loader := presets.NewLoader()
	controller := alarm.NewController(alarm.Config{
		FeedbackClearDelay: time.Hour,
		DismissDelay:       time.Hour,
	}, nil, repo, loader)
	avatars := avatar.NewService(&failingGenerator{}, avatar.NewMemoryStore(), "prompt")

	server := NewServer(config.ServerConfig{}, controller, loader, avatars, repo)

	apiKey, err := models.GenerateAPIKey()
	if err != nil {
		t.Fatalf("failed to generate api key: %v", err)
	}
	user := &models.User{
		ID:        "user-1",
		Name:      "tester",
		APIKey:    apiKey,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return &testEnv{
		server:     server,
		controller: controller,
		repo:       repo,
		apiKey:     apiKey,
		userID:     user.ID,
	}
}

type failingGenerator struct{}

func (f *failingGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return nil, context.DeadlineExceeded
}

// do performs an authenticated request against the router
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

// decode unwraps the response envelope into target
func decode(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *apiError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode envelope: %v (%s)", err, rec.Body.String())
	}
	if target != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, target); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error in the response")
	}
	return resp.Error.Code
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/alarm", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a key, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/alarm", nil)
	req.Header.Set("Authorization", "Bearer wk_bogus")
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bogus key, got %d", rec.Code)
	}
}

func TestAuthHeaderVariants(t *testing.T) {
	env := newTestEnv(t)

	// X-API-Key header
	req := httptest.NewRequest("GET", "/api/v1/alarm", nil)
	req.Header.Set("X-API-Key", env.apiKey)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("X-API-Key auth failed: %d", rec.Code)
	}

	// api_key query parameter (browser websocket clients cannot set headers)
	req = httptest.NewRequest("GET", "/api/v1/alarm?api_key="+env.apiKey, nil)
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("query-parameter auth failed: %d", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/api/v1/users", bytes.NewReader([]byte(`{"name":"morning person"}`)))
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp models.RegisterResponse
	decode(t, rec, &resp)
	if resp.APIKey == "" {
		t.Fatal("registration must return the API key")
	}
	if resp.Name != "morning person" {
		t.Errorf("unexpected name: %q", resp.Name)
	}

	// The returned key authenticates
	req = httptest.NewRequest("GET", "/api/v1/alarm", nil)
	req.Header.Set("Authorization", "Bearer "+resp.APIKey)
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("fresh key rejected: %d", rec.Code)
	}
}

func TestRegisterRequiresName(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/api/v1/users", bytes.NewReader([]byte(`{"name":"  "}`)))
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", rec.Code)
	}
}

func TestScheduleFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/alarm/schedule", models.ScheduleRequest{Start: "07:00", End: "08:00"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var view models.SessionView
	decode(t, rec, &view)
	if view.Status != models.StatusScheduled {
		t.Errorf("expected scheduled, got %q", view.Status)
	}
	if view.ScheduledAt == nil {
		t.Error("expected a scheduled instant")
	}

	// Double schedule conflicts
	rec = env.do(t, "POST", "/api/v1/alarm/schedule", models.ScheduleRequest{Start: "09:00", End: "10:00"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "not_idle" {
		t.Errorf("expected not_idle, got %q", code)
	}

	// Cancel returns to idle
	rec = env.do(t, "POST", "/api/v1/alarm/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d", rec.Code)
	}
	decode(t, rec, &view)
	if view.Status != models.StatusIdle {
		t.Errorf("expected idle after cancel, got %q", view.Status)
	}
}

func TestScheduleValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/alarm/schedule", models.ScheduleRequest{Start: "07:00"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing end, got %d", rec.Code)
	}

	rec = env.do(t, "POST", "/api/v1/alarm/schedule", models.ScheduleRequest{Start: "sunrise", End: "08:00"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed time, got %d", rec.Code)
	}
}

func TestPracticeAndSubmitFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/alarm/practice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("practice failed: %d (%s)", rec.Code, rec.Body.String())
	}

	var view models.SessionView
	decode(t, rec, &view)
	if view.Status != models.StatusRinging {
		t.Fatalf("expected ringing, got %q", view.Status)
	}
	if view.Problem == nil {
		t.Fatal("expected a problem")
	}
	if view.Hint != nil {
		t.Error("answer leaked in the API view")
	}

	answer := view.Problem.OperandA * view.Problem.OperandB

	// Wrong answer first
	rec = env.do(t, "POST", "/api/v1/alarm/submit", models.SubmitRequest{Answer: strconv.Itoa(answer + 1)})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed: %d", rec.Code)
	}
	var result models.SubmitResult
	decode(t, rec, &result)
	if result.Correct {
		t.Error("wrong answer judged correct")
	}
	if result.AttemptCount != 1 {
		t.Errorf("expected attempt count 1, got %d", result.AttemptCount)
	}

	// Correct answer solves
	rec = env.do(t, "POST", "/api/v1/alarm/submit", models.SubmitRequest{Answer: strconv.Itoa(answer)})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed: %d", rec.Code)
	}
	decode(t, rec, &result)
	if !result.Correct {
		t.Error("correct answer judged wrong")
	}
	if result.Stats == nil || result.Stats.TotalCorrect != 1 {
		t.Errorf("expected totalCorrect 1, got %+v", result.Stats)
	}

	// Stats endpoint agrees
	rec = env.do(t, "GET", "/api/v1/stats", nil)
	var stats models.Stats
	decode(t, rec, &stats)
	if stats.TotalCorrect != 1 || stats.Streak != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Attempts endpoint lists both submissions
	rec = env.do(t, "GET", "/api/v1/attempts", nil)
	var attemptsResp struct {
		Attempts []*models.AttemptRecord `json:"attempts"`
		Total    int                     `json:"total"`
	}
	decode(t, rec, &attemptsResp)
	if attemptsResp.Total != 2 {
		t.Errorf("expected 2 attempts, got %d", attemptsResp.Total)
	}
}

func TestSubmitWithoutQuiz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/alarm/submit", models.SubmitRequest{Answer: "42"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "not_ringing" {
		t.Errorf("expected not_ringing, got %q", code)
	}
}

func TestPracticeUnknownPreset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/alarm/practice", models.PracticeRequest{Preset: "nope"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPresetEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/v1/presets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list presets failed: %d", rec.Code)
	}
	var listResp struct {
		Presets []*presets.Preset `json:"presets"`
		Total   int               `json:"total"`
	}
	decode(t, rec, &listResp)
	if listResp.Total < 1 {
		t.Error("expected at least the default preset")
	}

	rec = env.do(t, "GET", "/api/v1/presets/default", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get preset failed: %d", rec.Code)
	}
	var p presets.Preset
	decode(t, rec, &p)
	if p.OperandMin != 2 || p.OperandMax != 12 {
		t.Errorf("unexpected default preset: %+v", p)
	}

	rec = env.do(t, "GET", "/api/v1/presets/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown preset, got %d", rec.Code)
	}
}

func TestAvatarEndpoints(t *testing.T) {
	env := newTestEnv(t)

	// Nothing cached yet
	rec := env.do(t, "GET", "/api/v1/avatar", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before generation, got %d", rec.Code)
	}

	// Generation is accepted even though the generator always fails
	rec = env.do(t, "POST", "/api/v1/avatar", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
}
