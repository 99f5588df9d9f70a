package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// SetClock overrides the time source. Test use only.
func (s *Service) SetClock(clock func() time.Time) { s.clock = clock }

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogExpenseAction records one expense lifecycle transition.
func (s *Service) LogExpenseAction(ctx context.Context, workspaceID, actorUserID, actorRole, ip, expenseID, action string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeExpenseAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		ExpenseID:   expenseID,
		Message:     "expense " + action,
	})
}

// LogDirectoryAction records an owner or vendor mutation.
func (s *Service) LogDirectoryAction(ctx context.Context, workspaceID, actorUserID, actorRole, ip, ownerID, vendorID, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeDirectoryAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		OwnerID:     ownerID,
		VendorID:    vendorID,
		Message:     message,
	})
}

// LogDispatch records a manual outbound message.
func (s *Service) LogDispatch(ctx context.Context, workspaceID, actorUserID, actorRole, ip, kind, recipient string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeDispatch,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     kind + " to " + recipient,
	})
}
