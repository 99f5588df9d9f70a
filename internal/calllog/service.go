package calllog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"propdesk/internal/session"
)

// Service writes call history when sessions reach a terminal state.
//
// Contract:
//   - Only terminal sessions are recorded; a live session is a caller bug.
//   - Tenancy: workspace_id is required and enforced in all queries.
//   - Entries are append-only; AttachRecording/AttachSummary fill columns that
//     start empty, they never rewrite the call facts.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("calllog: entry not found")
	ErrNotTerminal     = errors.New("calllog: session is not terminal")
	ErrInvalidArgument = errors.New("calllog: invalid argument")
)

// Repository abstracts call history persistence.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	Get(ctx context.Context, workspaceID, id string) (Entry, bool, error)
	List(ctx context.Context, workspaceID string, limit, offset int) ([]Entry, error)
	SetRecordingURL(ctx context.Context, workspaceID, id, url string) (bool, error)
	SetSummary(ctx context.Context, workspaceID, id, summary string) (bool, error)
}

// Record persists a finished session as a history entry.
func (s *Service) Record(ctx context.Context, sess session.Session) (Entry, error) {
	if sess.WorkspaceID == "" || sess.ID == "" {
		return Entry{}, ErrInvalidArgument
	}
	if !sess.Status.Terminal() {
		return Entry{}, ErrNotTerminal
	}

	now := s.clock().UTC()
	endedAt := now
	if sess.EndedAt != nil {
		endedAt = *sess.EndedAt
	}

	e := Entry{
		ID:                uuid.NewString(),
		WorkspaceID:       sess.WorkspaceID,
		SessionID:         sess.ID,
		Direction:         string(sess.Direction),
		CounterpartNumber: sess.CounterpartNumber,
		CounterpartName:   sess.CounterpartName,
		EntityType:        sess.RouteEntityType,
		EntityID:          sess.RouteEntityID,
		Outcome:           outcomeFor(sess),
		FailReason:        sess.FailReason,
		DurationSeconds:   sess.Duration(endedAt),
		ProviderCallID:    sess.ProviderCallID,
		StartedAt:         sess.StartedAt,
		EndedAt:           endedAt,
		CreatedAt:         now,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// outcomeFor maps a terminal session to its history disposition. An inbound
// call that failed without ever connecting was missed, not failed; the
// caller hung up or the ring expired.
func outcomeFor(sess session.Session) Outcome {
	if sess.Status == session.StatusEnded {
		return OutcomeCompleted
	}
	if sess.Direction == session.DirectionInbound && sess.ConnectedAt == nil {
		return OutcomeMissed
	}
	return OutcomeFailed
}

// RecordDeclined logs an inbound ring the agent declined. There is no
// session for these; the call never occupied the device.
func (s *Service) RecordDeclined(ctx context.Context, workspaceID, callSID, fromNumber, fromName string) (Entry, error) {
	if workspaceID == "" || callSID == "" {
		return Entry{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	e := Entry{
		ID:                uuid.NewString(),
		WorkspaceID:       workspaceID,
		Direction:         string(session.DirectionInbound),
		CounterpartNumber: fromNumber,
		CounterpartName:   fromName,
		Outcome:           OutcomeDeclined,
		ProviderCallID:    callSID,
		StartedAt:         now,
		EndedAt:           now,
		CreatedAt:         now,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns one history entry.
func (s *Service) Get(ctx context.Context, workspaceID, id string) (Entry, error) {
	if workspaceID == "" || id == "" {
		return Entry{}, ErrInvalidArgument
	}
	e, ok, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List pages through history, newest first.
func (s *Service) List(ctx context.Context, workspaceID string, limit, offset int) ([]Entry, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, workspaceID, limit, offset)
}

// AttachRecording links an uploaded recording to an entry.
func (s *Service) AttachRecording(ctx context.Context, workspaceID, id, url string) error {
	if workspaceID == "" || id == "" || url == "" {
		return ErrInvalidArgument
	}
	ok, err := s.repo.SetRecordingURL(ctx, workspaceID, id, url)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AttachSummary stores the generated call summary.
func (s *Service) AttachSummary(ctx context.Context, workspaceID, id, summary string) error {
	if workspaceID == "" || id == "" || summary == "" {
		return ErrInvalidArgument
	}
	ok, err := s.repo.SetSummary(ctx, workspaceID, id, summary)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(clock func() time.Time) { s.clock = clock }
