package push

import (
	"time"

	"propdesk/internal/session"
)

// Event types pushed to console clients.
const (
	TypeIncomingCall    = "incoming_call"
	TypeIncomingCleared = "incoming_cleared"
	TypeCallStatus      = "call_status"
)

// IncomingCallEvent tells clients to show (or update) the ring modal.
type IncomingCallEvent struct {
	Type       string    `json:"type"`
	CallSID    string    `json:"call_sid"`
	FromNumber string    `json:"from_number"`
	FromName   string    `json:"from_name,omitempty"`
	RingCount  int       `json:"ring_count"`
	ReceivedAt time.Time `json:"received_at"`
}

// IncomingClearedEvent tells clients to drop the ring modal.
type IncomingClearedEvent struct {
	Type    string `json:"type"`
	CallSID string `json:"call_sid"`
	Reason  string `json:"reason"`
}

// CallStatusEvent mirrors the live session for the in-call view.
type CallStatusEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Duration  int    `json:"duration_seconds"`
}

// NewCallStatusEvent snapshots a session for broadcast.
func NewCallStatusEvent(s *session.Session, now time.Time) CallStatusEvent {
	return CallStatusEvent{
		Type:      TypeCallStatus,
		SessionID: s.ID,
		Status:    string(s.Status),
		Reason:    s.FailReason,
		Duration:  s.Duration(now),
	}
}
