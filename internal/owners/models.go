package owners

import "time"

// Owner is a property owner the office manages units for.
// Workspace-scoped like every other record.
type Owner struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`

	// MailingAddress is free-form; unit linkage lives on the property side.
	MailingAddress string `json:"mailing_address,omitempty" db:"mailing_address"`
	Notes          string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
