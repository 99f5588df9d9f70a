package vendors

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists vendors.
//
// Assumes a table:
//   - vendors(id, workspace_id, name, trade, phone, email, active, notes,
//     created_at, updated_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, v Vendor) error {
	const q = `
INSERT INTO vendors (id, workspace_id, name, trade, phone, email, active, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	_, err := r.db.ExecContext(ctx, q,
		v.ID, v.WorkspaceID, v.Name, string(v.Trade), v.Phone, v.Email, v.Active, v.Notes, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Vendor, bool, error) {
	const q = `
SELECT id, workspace_id, name, trade, phone, email, active, notes, created_at, updated_at
FROM vendors
WHERE workspace_id = $1 AND id = $2
`
	v, err := scanVendor(r.db.QueryRowContext(ctx, q, workspaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Vendor{}, false, nil
	}
	if err != nil {
		return Vendor{}, false, err
	}
	return v, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, trade Trade, activeOnly bool, limit, offset int) ([]Vendor, error) {
	const q = `
SELECT id, workspace_id, name, trade, phone, email, active, notes, created_at, updated_at
FROM vendors
WHERE workspace_id = $1
  AND ($2 = '' OR trade = $2)
  AND (NOT $3 OR active)
ORDER BY name
LIMIT $4 OFFSET $5
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, string(trade), activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, v Vendor) (bool, error) {
	const q = `
UPDATE vendors
SET name = $3, trade = $4, phone = $5, email = $6, active = $7, notes = $8, updated_at = $9
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		v.WorkspaceID, v.ID, v.Name, string(v.Trade), v.Phone, v.Email, v.Active, v.Notes, v.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	const q = `DELETE FROM vendors WHERE workspace_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (Vendor, error) {
	var v Vendor
	var trade string
	if err := row.Scan(
		&v.ID, &v.WorkspaceID, &v.Name, &trade, &v.Phone, &v.Email, &v.Active, &v.Notes, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return Vendor{}, err
	}
	v.Trade = Trade(trade)
	return v, nil
}
