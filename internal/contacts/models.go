package contacts

import "time"

// ContactType classifies a directory entry.
type ContactType string

const (
	TypeLead   ContactType = "lead"
	TypeOwner  ContactType = "owner"
	TypeVendor ContactType = "vendor"
)

func (t ContactType) Valid() bool {
	switch t {
	case TypeLead, TypeOwner, TypeVendor:
		return true
	}
	return false
}

// Contact is a read-only directory projection over leads, owners and vendors.
// Workspace-scoped like every other record.
type Contact struct {
	ID          string      `json:"id" db:"id"`
	WorkspaceID string      `json:"workspace_id" db:"workspace_id"`
	Name        string      `json:"name" db:"name"`
	Phone       string      `json:"phone" db:"phone"`
	Email       string      `json:"email,omitempty" db:"email"`
	Type        ContactType `json:"type" db:"type"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Target is what the dialer needs: a normalized number plus display context.
type Target struct {
	Number     string      `json:"number"`
	Name       string      `json:"name,omitempty"`
	EntityType ContactType `json:"entity_type,omitempty"`
	EntityID   string      `json:"entity_id,omitempty"`
}
