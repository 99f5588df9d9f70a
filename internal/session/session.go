package session

import "time"

// Session represents one call attempt, outbound or inbound.
//
// Invariants:
//   - At most one Session per device may be live (ringing or in_progress) at a time;
//     the Machine enforces this.
//   - Status transitions are monotonic. A terminal status (ended, failed) absorbs
//     every later event, so a stale ringing event arriving after a hangup is a no-op.
//
// Provider-specific identifiers (Twilio CallSid etc.) live in ProviderCallID;
// the core never interprets them.
type Session struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Direction   Direction `json:"direction"`

	CounterpartNumber string `json:"counterpart_number"`
	CounterpartName   string `json:"counterpart_name,omitempty"`

	// RouteContext ties the call back to the back-office entity it was placed
	// for (lead, owner, vendor), if any.
	RouteEntityType string `json:"route_entity_type,omitempty"`
	RouteEntityID   string `json:"route_entity_id,omitempty"`

	ProviderCallID string `json:"provider_call_id,omitempty"`

	Status     Status `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusEnded      Status = "ended"
	StatusFailed     Status = "failed"
)

// Live reports whether the session currently occupies the device.
func (s Status) Live() bool {
	switch s {
	case StatusConnecting, StatusRinging, StatusInProgress:
		return true
	default:
		return false
	}
}

// Terminal statuses absorb all later events.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// rank orders statuses along the forward path. failed sits above everything
// so the monotonicity check lets any non-terminal state fail.
func (s Status) rank() int {
	switch s {
	case StatusIdle:
		return 0
	case StatusConnecting:
		return 1
	case StatusRinging:
		return 2
	case StatusInProgress:
		return 3
	case StatusEnded:
		return 4
	case StatusFailed:
		return 5
	default:
		return -1
	}
}

// Duration returns the derived call duration in whole seconds.
// It is 0 until the call connects, counts up while in progress, and freezes
// at endedAt-connectedAt once the session reaches a terminal status.
func (s *Session) Duration(now time.Time) int {
	if s.ConnectedAt == nil {
		return 0
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := int(end.Sub(*s.ConnectedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
