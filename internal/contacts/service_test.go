package contacts

import (
	"context"
	"testing"

	"propdesk/internal/device"
)

func seedRepo() *MemoryRepo {
	return &MemoryRepo{Contacts: []Contact{
		{ID: "c1", WorkspaceID: "ws1", Name: "Dana Ortiz", Phone: "+14045551234", Type: TypeOwner},
		{ID: "c2", WorkspaceID: "ws1", Name: "Apex Plumbing", Phone: "+14045559876", Type: TypeVendor},
		{ID: "c3", WorkspaceID: "ws1", Name: "Apex Roofing", Phone: "+14045550001", Type: TypeVendor},
		{ID: "c4", WorkspaceID: "ws2", Name: "Dana Ortiz", Phone: "+16785550000", Type: TypeLead},
	}}
}

func TestResolveRawNumber(t *testing.T) {
	s := NewService(seedRepo())

	got, err := s.Resolve(context.Background(), "ws1", "(404) 555-1234")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Number != "4045551234" {
		t.Fatalf("expected normalized number, got %q", got.Number)
	}
}

func TestResolveNumberReverseLookup(t *testing.T) {
	s := NewService(seedRepo())

	got, err := s.Resolve(context.Background(), "ws1", "+1 404 555 1234")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name != "Dana Ortiz" || got.EntityType != TypeOwner || got.EntityID != "c1" {
		t.Fatalf("expected reverse lookup fill, got %+v", got)
	}
}

func TestResolveInvalidNumber(t *testing.T) {
	s := NewService(seedRepo())

	if _, err := s.Resolve(context.Background(), "ws1", "12"); err != device.ErrInvalidNumber {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
}

func TestResolveByID(t *testing.T) {
	s := NewService(seedRepo())

	got, err := s.Resolve(context.Background(), "ws1", "c2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Number != "+14045559876" || got.Name != "Apex Plumbing" {
		t.Fatalf("unexpected target: %+v", got)
	}
}

func TestResolveByUniqueNameFragment(t *testing.T) {
	s := NewService(seedRepo())

	got, err := s.Resolve(context.Background(), "ws1", "plumbing")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.EntityID != "c2" {
		t.Fatalf("expected c2, got %+v", got)
	}
}

func TestResolveAmbiguousName(t *testing.T) {
	s := NewService(seedRepo())

	if _, err := s.Resolve(context.Background(), "ws1", "apex"); err != ErrAmbiguousQuery {
		t.Fatalf("expected ErrAmbiguousQuery, got %v", err)
	}
}

func TestResolveUnknownName(t *testing.T) {
	s := NewService(seedRepo())

	if _, err := s.Resolve(context.Background(), "ws1", "nobody"); err != ErrContactNotFound {
		t.Fatalf("expected ErrContactNotFound, got %v", err)
	}
}

func TestResolveScopedToWorkspace(t *testing.T) {
	s := NewService(seedRepo())

	// ws2 has its own Dana; ws1's record must not leak.
	got, err := s.Resolve(context.Background(), "ws2", "dana")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.EntityID != "c4" || got.Number != "+16785550000" {
		t.Fatalf("workspace leak: %+v", got)
	}
}

func TestIdentifyUnknownCallerIsNotAnError(t *testing.T) {
	s := NewService(seedRepo())

	got, err := s.Identify(context.Background(), "ws1", "+19998887777")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if got.Name != "" || got.Number != "+19998887777" {
		t.Fatalf("expected bare number, got %+v", got)
	}
}

func TestIdentifyKnownCaller(t *testing.T) {
	s := NewService(seedRepo())

	got, err := s.Identify(context.Background(), "ws1", "+14045559876")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if got.Name != "Apex Plumbing" || got.EntityType != TypeVendor {
		t.Fatalf("unexpected target: %+v", got)
	}
}

func TestListFiltersByType(t *testing.T) {
	s := NewService(seedRepo())

	vendors, err := s.List(context.Background(), "ws1", TypeVendor, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(vendors) != 2 {
		t.Fatalf("expected 2 vendors, got %d", len(vendors))
	}
	for _, c := range vendors {
		if c.Type != TypeVendor {
			t.Fatalf("wrong type in filtered list: %+v", c)
		}
	}
}
