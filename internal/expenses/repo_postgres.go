package expenses

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists expenses.
//
// Assumes a table:
//   - expenses(id, workspace_id, vendor_id, description, amount_minor,
//     currency, status, invoice_ref, incurred_at, approved_at, paid_at,
//     created_at, updated_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, e Expense) error {
	const q = `
INSERT INTO expenses (
	id, workspace_id, vendor_id, description, amount_minor, currency,
	status, invoice_ref, incurred_at, approved_at, paid_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.WorkspaceID, e.VendorID, e.Description, e.AmountMinor, e.Currency,
		string(e.Status), e.InvoiceRef, e.IncurredAt, e.ApprovedAt, e.PaidAt, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Expense, bool, error) {
	const q = `
SELECT id, workspace_id, vendor_id, description, amount_minor, currency,
       status, invoice_ref, incurred_at, approved_at, paid_at, created_at, updated_at
FROM expenses
WHERE workspace_id = $1 AND id = $2
`
	e, err := scanExpense(r.db.QueryRowContext(ctx, q, workspaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Expense{}, false, nil
	}
	if err != nil {
		return Expense{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, status Status, vendorID string, limit, offset int) ([]Expense, error) {
	const q = `
SELECT id, workspace_id, vendor_id, description, amount_minor, currency,
       status, invoice_ref, incurred_at, approved_at, paid_at, created_at, updated_at
FROM expenses
WHERE workspace_id = $1
  AND ($2 = '' OR status = $2)
  AND ($3 = '' OR vendor_id = $3)
ORDER BY incurred_at DESC
LIMIT $4 OFFSET $5
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, string(status), vendorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, e Expense) (bool, error) {
	const q = `
UPDATE expenses
SET vendor_id = $3, description = $4, amount_minor = $5, currency = $6,
    status = $7, invoice_ref = $8, incurred_at = $9, approved_at = $10,
    paid_at = $11, updated_at = $12
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		e.WorkspaceID, e.ID, e.VendorID, e.Description, e.AmountMinor, e.Currency,
		string(e.Status), e.InvoiceRef, e.IncurredAt, e.ApprovedAt, e.PaidAt, e.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var e Expense
	var status string
	if err := row.Scan(
		&e.ID, &e.WorkspaceID, &e.VendorID, &e.Description, &e.AmountMinor, &e.Currency,
		&status, &e.InvoiceRef, &e.IncurredAt, &e.ApprovedAt, &e.PaidAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Expense{}, err
	}
	e.Status = Status(status)
	return e, nil
}
