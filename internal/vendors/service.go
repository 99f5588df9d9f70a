package vendors

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"propdesk/internal/device"
)

// Service manages the vendor roster.
//
// Contract:
//   - Tenancy: workspace_id is required and enforced in all queries.
//   - Deactivation is the normal removal path; hard Delete exists for records
//     created by mistake.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("vendors: not found")
	ErrInvalidArgument = errors.New("vendors: invalid argument")
)

// Repository abstracts vendor persistence.
type Repository interface {
	Insert(ctx context.Context, v Vendor) error
	Get(ctx context.Context, workspaceID, id string) (Vendor, bool, error)
	List(ctx context.Context, workspaceID string, trade Trade, activeOnly bool, limit, offset int) ([]Vendor, error)
	Update(ctx context.Context, v Vendor) (bool, error)
	Delete(ctx context.Context, workspaceID, id string) (bool, error)
}

// CreateRequest carries the writable vendor fields.
type CreateRequest struct {
	Name  string `json:"name"`
	Trade Trade  `json:"trade"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func (s *Service) Create(ctx context.Context, workspaceID string, req CreateRequest) (Vendor, error) {
	if workspaceID == "" || strings.TrimSpace(req.Name) == "" {
		return Vendor{}, ErrInvalidArgument
	}
	if !req.Trade.Valid() {
		return Vendor{}, ErrInvalidArgument
	}
	phone, err := device.NormalizeNumber(req.Phone)
	if err != nil {
		return Vendor{}, err
	}

	now := s.clock().UTC()
	v := Vendor{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(req.Name),
		Trade:       req.Trade,
		Phone:       phone,
		Email:       strings.TrimSpace(req.Email),
		Active:      true,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, v); err != nil {
		return Vendor{}, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Vendor, error) {
	if workspaceID == "" || id == "" {
		return Vendor{}, ErrInvalidArgument
	}
	v, ok, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Vendor{}, err
	}
	if !ok {
		return Vendor{}, ErrNotFound
	}
	return v, nil
}

// List returns vendors, optionally filtered by trade and activity.
func (s *Service) List(ctx context.Context, workspaceID string, trade Trade, activeOnly bool, limit, offset int) ([]Vendor, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if trade != "" && !trade.Valid() {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, workspaceID, trade, activeOnly, limit, offset)
}

func (s *Service) Update(ctx context.Context, workspaceID, id string, req CreateRequest) (Vendor, error) {
	v, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return Vendor{}, err
	}

	if strings.TrimSpace(req.Name) == "" || !req.Trade.Valid() {
		return Vendor{}, ErrInvalidArgument
	}
	phone, err := device.NormalizeNumber(req.Phone)
	if err != nil {
		return Vendor{}, err
	}

	v.Name = strings.TrimSpace(req.Name)
	v.Trade = req.Trade
	v.Phone = phone
	v.Email = strings.TrimSpace(req.Email)
	v.Notes = req.Notes
	v.UpdatedAt = s.clock().UTC()

	ok, err := s.repo.Update(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	if !ok {
		return Vendor{}, ErrNotFound
	}
	return v, nil
}

// SetActive flips the dispatch availability flag.
func (s *Service) SetActive(ctx context.Context, workspaceID, id string, active bool) (Vendor, error) {
	v, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return Vendor{}, err
	}
	v.Active = active
	v.UpdatedAt = s.clock().UTC()

	ok, err := s.repo.Update(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	if !ok {
		return Vendor{}, ErrNotFound
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, workspaceID, id string) error {
	if workspaceID == "" || id == "" {
		return ErrInvalidArgument
	}
	ok, err := s.repo.Delete(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
