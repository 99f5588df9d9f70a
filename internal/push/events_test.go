package push

import (
	"testing"
	"time"

	"propdesk/internal/session"
)

func TestNewCallStatusEventDerivesDuration(t *testing.T) {
	connected := time.Unix(1700000000, 0).UTC()
	s := &session.Session{
		ID:          "sess-1",
		Status:      session.StatusInProgress,
		ConnectedAt: &connected,
	}

	ev := NewCallStatusEvent(s, connected.Add(42*time.Second))
	if ev.Type != TypeCallStatus || ev.SessionID != "sess-1" || ev.Status != "in_progress" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Duration != 42 {
		t.Fatalf("expected 42s duration, got %d", ev.Duration)
	}
}

func TestNewCallStatusEventZeroBeforeConnect(t *testing.T) {
	s := &session.Session{ID: "sess-2", Status: session.StatusRinging}
	ev := NewCallStatusEvent(s, time.Now())
	if ev.Duration != 0 {
		t.Fatalf("expected zero duration before connect, got %d", ev.Duration)
	}
}
