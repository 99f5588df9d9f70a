package owners

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists owners.
//
// Assumes a table:
//   - owners(id, workspace_id, name, phone, email, mailing_address, notes,
//     created_at, updated_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, o Owner) error {
	const q = `
INSERT INTO owners (id, workspace_id, name, phone, email, mailing_address, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.WorkspaceID, o.Name, o.Phone, o.Email, o.MailingAddress, o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Owner, bool, error) {
	const q = `
SELECT id, workspace_id, name, phone, email, mailing_address, notes, created_at, updated_at
FROM owners
WHERE workspace_id = $1 AND id = $2
`
	var o Owner
	err := r.db.QueryRowContext(ctx, q, workspaceID, id).Scan(
		&o.ID, &o.WorkspaceID, &o.Name, &o.Phone, &o.Email, &o.MailingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Owner{}, false, nil
	}
	if err != nil {
		return Owner{}, false, err
	}
	return o, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, limit, offset int) ([]Owner, error) {
	const q = `
SELECT id, workspace_id, name, phone, email, mailing_address, notes, created_at, updated_at
FROM owners
WHERE workspace_id = $1
ORDER BY name
LIMIT $2 OFFSET $3
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(
			&o.ID, &o.WorkspaceID, &o.Name, &o.Phone, &o.Email, &o.MailingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, o Owner) (bool, error) {
	const q = `
UPDATE owners
SET name = $3, phone = $4, email = $5, mailing_address = $6, notes = $7, updated_at = $8
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		o.WorkspaceID, o.ID, o.Name, o.Phone, o.Email, o.MailingAddress, o.Notes, o.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	const q = `DELETE FROM owners WHERE workspace_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
