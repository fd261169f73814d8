package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestViewWithholdsAnswer(t *testing.T) {
	s := &AlarmSession{
		UserID: "u1",
		Status: StatusRinging,
		Problem: &Problem{
			ID:       "p1",
			OperandA: 6,
			OperandB: 7,
			Answer:   42,
		},
		Feedback: FeedbackNone,
	}

	view := s.View()
	if view.Problem == nil {
		t.Fatal("view must carry the problem")
	}
	if view.Hint != nil {
		t.Error("answer exposed without hint")
	}

	// Nothing in the serialized view may contain the answer
	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "42") {
		t.Errorf("answer leaked in serialized view: %s", data)
	}
}

func TestViewRevealsHint(t *testing.T) {
	s := &AlarmSession{
		Status:       StatusRinging,
		HintRevealed: true,
		Problem: &Problem{
			OperandA: 6,
			OperandB: 7,
			Answer:   42,
		},
	}

	view := s.View()
	if view.Hint == nil || *view.Hint != 42 {
		t.Errorf("expected hint 42, got %v", view.Hint)
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name    string
		session AlarmSession
		want    bool
	}{
		{"scheduled and passed", AlarmSession{Status: StatusScheduled, ScheduledAt: &past}, true},
		{"scheduled not yet", AlarmSession{Status: StatusScheduled, ScheduledAt: &future}, false},
		{"scheduled exactly now", AlarmSession{Status: StatusScheduled, ScheduledAt: &now}, false},
		{"ringing", AlarmSession{Status: StatusRinging, ScheduledAt: &past}, false},
		{"idle", AlarmSession{Status: StatusIdle}, false},
		{"scheduled without instant", AlarmSession{Status: StatusScheduled}, false},
	}
	for _, tc := range cases {
		if got := tc.session.IsDue(now); got != tc.want {
			t.Errorf("%s: IsDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "wk_") {
		t.Errorf("expected wk_ prefix, got %q", key)
	}
	if len(key) != 3+48 {
		t.Errorf("unexpected key length %d", len(key))
	}

	other, _ := GenerateAPIKey()
	if key == other {
		t.Error("keys must be unique")
	}
}

func TestMaskedAPIKey(t *testing.T) {
	u := &User{APIKey: "wk_0123456789abcdef"}
	masked := u.MaskedAPIKey()
	if masked != "wk_01234..." {
		t.Errorf("unexpected mask: %q", masked)
	}

	short := &User{APIKey: "wk"}
	if short.MaskedAPIKey() != "***" {
		t.Errorf("short keys must be fully masked, got %q", short.MaskedAPIKey())
	}
}
