package expenses

import "time"

// Expense is a cost record against a workspace, usually an invoice from a
// vendor. Amounts are in minor units (cents) as int64, never floats.
type Expense struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	VendorID string `json:"vendor_id,omitempty" db:"vendor_id"`

	Description string `json:"description" db:"description"`
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	Status Status `json:"status" db:"status"`

	// InvoiceRef is the vendor's invoice number, if any.
	InvoiceRef string `json:"invoice_ref,omitempty" db:"invoice_ref"`

	IncurredAt time.Time  `json:"incurred_at" db:"incurred_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Status walks draft -> pending -> approved -> paid, with void reachable
// from anywhere before paid.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusVoid     Status = "void"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusPaid, StatusVoid:
		return true
	}
	return false
}
