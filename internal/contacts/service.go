package contacts

import (
	"context"
	"errors"
	"strings"

	"propdesk/internal/device"
)

// Service resolves who to dial and who is calling.
//
// Contract:
//   - Tenancy: workspace_id required on every lookup.
//   - Resolve never guesses: a query that is neither a valid number, a known
//     contact ID, nor a unique name match returns ErrContactNotFound.
//   - Reverse lookup (number -> name) is best effort; an unknown caller is not
//     an error, the number is returned as-is.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrAmbiguousQuery  = errors.New("query matches multiple contacts")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository abstracts the contact directory. Postgres in production,
// MemoryRepo in tests.
type Repository interface {
	GetByID(ctx context.Context, workspaceID, id string) (Contact, bool, error)
	FindByPhone(ctx context.Context, workspaceID, phone string) (Contact, bool, error)
	SearchByName(ctx context.Context, workspaceID, fragment string, limit int) ([]Contact, error)
	List(ctx context.Context, workspaceID string, t ContactType, limit, offset int) ([]Contact, error)
}

// Resolve turns a free-text query into a dialable Target.
//
// Resolution order:
//  1. digit-looking input is normalized and dialed directly, with a reverse
//     lookup filling the display name when the number is known;
//  2. exact contact ID;
//  3. name fragment, which must match exactly one contact.
func (s *Service) Resolve(ctx context.Context, workspaceID, query string) (Target, error) {
	if workspaceID == "" {
		return Target{}, ErrInvalidArgument
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Target{}, ErrInvalidArgument
	}

	if looksLikeNumber(query) {
		num, err := device.NormalizeNumber(query)
		if err != nil {
			return Target{}, err
		}
		t := Target{Number: num}
		if c, ok, err := s.repo.FindByPhone(ctx, workspaceID, num); err != nil {
			return Target{}, err
		} else if ok {
			t.Name = c.Name
			t.EntityType = c.Type
			t.EntityID = c.ID
		}
		return t, nil
	}

	if c, ok, err := s.repo.GetByID(ctx, workspaceID, query); err != nil {
		return Target{}, err
	} else if ok {
		return targetFrom(c), nil
	}

	matches, err := s.repo.SearchByName(ctx, workspaceID, query, 2)
	if err != nil {
		return Target{}, err
	}
	switch len(matches) {
	case 0:
		return Target{}, ErrContactNotFound
	case 1:
		return targetFrom(matches[0]), nil
	default:
		return Target{}, ErrAmbiguousQuery
	}
}

// Identify names an inbound caller. Unknown numbers come back with the
// number alone; the notifier shows the raw number in that case.
func (s *Service) Identify(ctx context.Context, workspaceID, number string) (Target, error) {
	if workspaceID == "" || number == "" {
		return Target{}, ErrInvalidArgument
	}
	t := Target{Number: number}
	c, ok, err := s.repo.FindByPhone(ctx, workspaceID, number)
	if err != nil {
		return Target{}, err
	}
	if ok {
		t.Name = c.Name
		t.EntityType = c.Type
		t.EntityID = c.ID
	}
	return t, nil
}

// Get returns a single contact.
func (s *Service) Get(ctx context.Context, workspaceID, id string) (Contact, error) {
	if workspaceID == "" || id == "" {
		return Contact{}, ErrInvalidArgument
	}
	c, ok, err := s.repo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return Contact{}, err
	}
	if !ok {
		return Contact{}, ErrContactNotFound
	}
	return c, nil
}

// List pages through the directory, optionally filtered by type.
func (s *Service) List(ctx context.Context, workspaceID string, t ContactType, limit, offset int) ([]Contact, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if t != "" && !t.Valid() {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, workspaceID, t, limit, offset)
}

func targetFrom(c Contact) Target {
	return Target{
		Number:     c.Phone,
		Name:       c.Name,
		EntityType: c.Type,
		EntityID:   c.ID,
	}
}

// looksLikeNumber reports whether the query is digits (plus common phone
// punctuation) rather than a name or ID.
func looksLikeNumber(q string) bool {
	digits := 0
	for _, r := range q {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits > 0
}
