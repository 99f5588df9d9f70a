package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a call lifecycle input, either user-triggered (place, hangup) or
// delivered by the transport (ringing, answered, disconnected, error).
type Event string

const (
	EventPlace        Event = "place"
	EventRinging      Event = "ringing"
	EventAnswered     Event = "answered"
	EventHangup       Event = "hangup"
	EventDisconnected Event = "disconnected"
	EventError        Event = "error"
)

var (
	ErrCallInProgress    = errors.New("session: a call is already active")
	ErrNoActiveSession   = errors.New("session: no active session")
	ErrInvalidTransition = errors.New("session: invalid transition")
)

// transitions is the single source of truth for the call lifecycle:
//
//	idle -place-> connecting -ringing-> ringing -answered-> in_progress
//	in_progress -hangup/disconnected-> ended
//	any non-idle -error-> failed
//
// Events not present for the current status are rejected, except that
// terminal statuses silently absorb everything (handled in Apply).
var transitions = map[Status]map[Event]Status{
	StatusIdle: {
		EventPlace: StatusConnecting,
	},
	StatusConnecting: {
		EventRinging:      StatusRinging,
		EventAnswered:     StatusInProgress,
		EventHangup:       StatusEnded,
		EventDisconnected: StatusEnded,
		EventError:        StatusFailed,
	},
	StatusRinging: {
		EventAnswered:     StatusInProgress,
		EventHangup:       StatusEnded,
		EventDisconnected: StatusEnded,
		EventError:        StatusFailed,
	},
	StatusInProgress: {
		EventHangup:       StatusEnded,
		EventDisconnected: StatusEnded,
		EventError:        StatusFailed,
	},
}

// Machine owns the single live Session for one device.
//
// All mutation goes through Begin/Apply under the machine lock, so transport
// events and user actions interleave safely and are applied in arrival order.
type Machine struct {
	mu          sync.Mutex
	current     *Session
	workspaceID string
	clock       func() time.Time
}

func NewMachine() *Machine {
	return &Machine{clock: time.Now}
}

// SetClock overrides the time source. Test use only.
func (m *Machine) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// SetWorkspaceID stamps every session this machine creates with the owning
// workspace. Set once at device setup.
func (m *Machine) SetWorkspaceID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaceID = id
}

// Begin creates a new session and moves it to connecting (outbound) or
// ringing (inbound). It fails with ErrCallInProgress while another session
// is live.
func (m *Machine) Begin(dir Direction, number, name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Status.Live() {
		return nil, ErrCallInProgress
	}

	now := m.clock().UTC()
	s := &Session{
		ID:                uuid.NewString(),
		WorkspaceID:       m.workspaceID,
		Direction:         dir,
		CounterpartNumber: number,
		CounterpartName:   name,
		Status:            StatusConnecting,
		StartedAt:         now,
	}
	if dir == DirectionInbound {
		// Inbound sessions are created at ring time; the caller is already ringing us.
		s.Status = StatusRinging
	}
	m.current = s
	return m.snapshotLocked(), nil
}

// Apply feeds one event to the current session.
//
// Terminal sessions absorb every event without error: last-terminal-wins, a
// stale ringing arriving after ended/failed must not resurrect the call.
// reason is recorded only for EventError.
func (m *Machine) Apply(ev Event, reason string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, ErrNoActiveSession
	}
	s := m.current
	if s.Status.Terminal() {
		return m.snapshotLocked(), nil
	}

	next, ok := transitions[s.Status][ev]
	if !ok {
		return nil, ErrInvalidTransition
	}
	if next.rank() < s.Status.rank() {
		// The table should never contain a backward edge; keep the guard anyway.
		return nil, ErrInvalidTransition
	}

	now := m.clock().UTC()
	switch next {
	case StatusInProgress:
		t := now
		s.ConnectedAt = &t
	case StatusEnded:
		t := now
		s.EndedAt = &t
	case StatusFailed:
		t := now
		s.EndedAt = &t
		s.FailReason = reason
	}
	s.Status = next
	return m.snapshotLocked(), nil
}

// Current returns a copy of the active session, or nil if none exists.
func (m *Machine) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// LiveSession returns the session only while it occupies the device.
func (m *Machine) LiveSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.Status.Live() {
		return nil
	}
	return m.snapshotLocked()
}

// Duration reports the derived duration of the current session.
func (m *Machine) Duration() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.Duration(m.clock().UTC())
}

// SetProviderCallID records the transport's call identifier once known.
func (m *Machine) SetProviderCallID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.ProviderCallID = id
	}
}

// SetRouteContext tags the current session with the back-office entity the
// call is associated with.
func (m *Machine) SetRouteContext(entityType, entityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.RouteEntityType = entityType
		m.current.RouteEntityID = entityID
	}
}

func (m *Machine) snapshotLocked() *Session {
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}
