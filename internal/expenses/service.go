package expenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service manages expense records.
//
// Money invariants:
// - Amounts are positive minor units; currency is a 3-letter code.
// - paid and void are terminal; no transition leaves them.
//
// Tenancy invariant:
// - workspace_id is required and enforced in all queries.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrNotFound          = errors.New("expenses: not found")
	ErrInvalidArgument   = errors.New("expenses: invalid argument")
	ErrInvalidTransition = errors.New("expenses: invalid status transition")
)

// Repository abstracts expense persistence.
type Repository interface {
	Insert(ctx context.Context, e Expense) error
	Get(ctx context.Context, workspaceID, id string) (Expense, bool, error)
	List(ctx context.Context, workspaceID string, status Status, vendorID string, limit, offset int) ([]Expense, error)
	Update(ctx context.Context, e Expense) (bool, error)
}

// CreateRequest carries the writable expense fields.
type CreateRequest struct {
	VendorID    string    `json:"vendor_id,omitempty"`
	Description string    `json:"description"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	InvoiceRef  string    `json:"invoice_ref,omitempty"`
	IncurredAt  time.Time `json:"incurred_at"`
}

func (s *Service) Create(ctx context.Context, workspaceID string, req CreateRequest) (Expense, error) {
	if workspaceID == "" || strings.TrimSpace(req.Description) == "" {
		return Expense{}, ErrInvalidArgument
	}
	if req.AmountMinor <= 0 || len(req.Currency) != 3 {
		return Expense{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	incurred := req.IncurredAt
	if incurred.IsZero() {
		incurred = now
	}

	e := Expense{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		VendorID:    req.VendorID,
		Description: strings.TrimSpace(req.Description),
		AmountMinor: req.AmountMinor,
		Currency:    strings.ToUpper(req.Currency),
		Status:      StatusDraft,
		InvoiceRef:  req.InvoiceRef,
		IncurredAt:  incurred,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Expense, error) {
	if workspaceID == "" || id == "" {
		return Expense{}, ErrInvalidArgument
	}
	e, ok, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Expense{}, err
	}
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, workspaceID string, status Status, vendorID string, limit, offset int) ([]Expense, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, workspaceID, status, vendorID, limit, offset)
}

// Submit moves a draft into the approval queue.
func (s *Service) Submit(ctx context.Context, workspaceID, id string) (Expense, error) {
	return s.transition(ctx, workspaceID, id, StatusPending, map[Status]bool{StatusDraft: true}, nil)
}

// Approve accepts a pending expense for payment.
func (s *Service) Approve(ctx context.Context, workspaceID, id string) (Expense, error) {
	return s.transition(ctx, workspaceID, id, StatusApproved,
		map[Status]bool{StatusPending: true},
		func(e *Expense, now time.Time) { e.ApprovedAt = &now })
}

// MarkPaid records payment of an approved expense.
func (s *Service) MarkPaid(ctx context.Context, workspaceID, id string) (Expense, error) {
	return s.transition(ctx, workspaceID, id, StatusPaid,
		map[Status]bool{StatusApproved: true},
		func(e *Expense, now time.Time) { e.PaidAt = &now })
}

// Void cancels an expense that has not been paid.
func (s *Service) Void(ctx context.Context, workspaceID, id string) (Expense, error) {
	return s.transition(ctx, workspaceID, id, StatusVoid,
		map[Status]bool{StatusDraft: true, StatusPending: true, StatusApproved: true}, nil)
}

func (s *Service) transition(ctx context.Context, workspaceID, id string, to Status, from map[Status]bool, stamp func(*Expense, time.Time)) (Expense, error) {
	e, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return Expense{}, err
	}
	if !from[e.Status] {
		return Expense{}, ErrInvalidTransition
	}

	now := s.clock().UTC()
	e.Status = to
	e.UpdatedAt = now
	if stamp != nil {
		stamp(&e, now)
	}

	ok, err := s.repo.Update(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(clock func() time.Time) { s.clock = clock }
