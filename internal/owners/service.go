package owners

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"propdesk/internal/device"
)

// Service manages owner records.
//
// Contract:
//   - Tenancy: workspace_id is required and enforced in all queries.
//   - Phone numbers are normalized on the way in so dialing and reverse
//     lookup see one canonical form.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("owners: not found")
	ErrInvalidArgument = errors.New("owners: invalid argument")
)

// Repository abstracts owner persistence.
type Repository interface {
	Insert(ctx context.Context, o Owner) error
	Get(ctx context.Context, workspaceID, id string) (Owner, bool, error)
	List(ctx context.Context, workspaceID string, limit, offset int) ([]Owner, error)
	Update(ctx context.Context, o Owner) (bool, error)
	Delete(ctx context.Context, workspaceID, id string) (bool, error)
}

// CreateRequest carries the writable owner fields.
type CreateRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	MailingAddress string `json:"mailing_address,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

func (s *Service) Create(ctx context.Context, workspaceID string, req CreateRequest) (Owner, error) {
	if workspaceID == "" || strings.TrimSpace(req.Name) == "" {
		return Owner{}, ErrInvalidArgument
	}
	phone, err := device.NormalizeNumber(req.Phone)
	if err != nil {
		return Owner{}, err
	}

	now := s.clock().UTC()
	o := Owner{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		Name:           strings.TrimSpace(req.Name),
		Phone:          phone,
		Email:          strings.TrimSpace(req.Email),
		MailingAddress: req.MailingAddress,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, o); err != nil {
		return Owner{}, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Owner, error) {
	if workspaceID == "" || id == "" {
		return Owner{}, ErrInvalidArgument
	}
	o, ok, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Owner{}, err
	}
	if !ok {
		return Owner{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, workspaceID string, limit, offset int) ([]Owner, error) {
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

func (s *Service) Update(ctx context.Context, workspaceID, id string, req CreateRequest) (Owner, error) {
	o, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return Owner{}, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return Owner{}, ErrInvalidArgument
	}
	phone, err := device.NormalizeNumber(req.Phone)
	if err != nil {
		return Owner{}, err
	}

	o.Name = strings.TrimSpace(req.Name)
	o.Phone = phone
	o.Email = strings.TrimSpace(req.Email)
	o.MailingAddress = req.MailingAddress
	o.Notes = req.Notes
	o.UpdatedAt = s.clock().UTC()

	ok, err := s.repo.Update(ctx, o)
	if err != nil {
		return Owner{}, err
	}
	if !ok {
		return Owner{}, ErrNotFound
	}
	return o, nil
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
