package calllog

import "time"

// Entry is one finished call in the workspace's history.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
//
// Entries are written once, when a session reaches a terminal state, and
// never mutated afterwards except to attach a recording URL or summary.
type Entry struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	SessionID   string `json:"session_id" db:"session_id"`

	Direction         string `json:"direction" db:"direction"`
	CounterpartNumber string `json:"counterpart_number" db:"counterpart_number"`
	CounterpartName   string `json:"counterpart_name,omitempty" db:"counterpart_name"`

	// EntityType/EntityID link the call back to the owner, vendor or lead
	// it was placed from.
	EntityType string `json:"entity_type,omitempty" db:"entity_type"`
	EntityID   string `json:"entity_id,omitempty" db:"entity_id"`

	Outcome    Outcome `json:"outcome" db:"outcome"`
	FailReason string  `json:"fail_reason,omitempty" db:"fail_reason"`

	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`
	RecordingURL   string `json:"recording_url,omitempty" db:"recording_url"`
	Summary        string `json:"summary,omitempty" db:"summary"`

	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outcome is the terminal disposition of a call.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeclined  Outcome = "declined"
	OutcomeMissed    Outcome = "missed"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeFailed, OutcomeDeclined, OutcomeMissed:
		return true
	}
	return false
}
