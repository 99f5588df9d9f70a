package contacts

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo reads the contacts view.
//
// Assumes a table (or view over leads/owners/vendors):
// - contacts(id, workspace_id, name, phone, email, type, created_at, updated_at)
// with UNIQUE (workspace_id, phone).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetByID(ctx context.Context, workspaceID, id string) (Contact, bool, error) {
	const q = `
SELECT id, workspace_id, name, phone, email, type, created_at, updated_at
FROM contacts
WHERE workspace_id = $1 AND id = $2
`
	c, err := scanContact(r.db.QueryRowContext(ctx, q, workspaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, false, nil
	}
	if err != nil {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) FindByPhone(ctx context.Context, workspaceID, phone string) (Contact, bool, error) {
	const q = `
SELECT id, workspace_id, name, phone, email, type, created_at, updated_at
FROM contacts
WHERE workspace_id = $1 AND phone = $2
`
	c, err := scanContact(r.db.QueryRowContext(ctx, q, workspaceID, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, false, nil
	}
	if err != nil {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) SearchByName(ctx context.Context, workspaceID, fragment string, limit int) ([]Contact, error) {
	const q = `
SELECT id, workspace_id, name, phone, email, type, created_at, updated_at
FROM contacts
WHERE workspace_id = $1 AND name ILIKE '%' || $2 || '%'
ORDER BY name
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, fragment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, t ContactType, limit, offset int) ([]Contact, error) {
	const q = `
SELECT id, workspace_id, name, phone, email, type, created_at, updated_at
FROM contacts
WHERE workspace_id = $1 AND ($2 = '' OR type = $2)
ORDER BY name
LIMIT $3 OFFSET $4
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, string(t), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	var email sql.NullString
	if err := row.Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.Name,
		&c.Phone,
		&email,
		&c.Type,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Contact{}, err
	}
	c.Email = email.String
	return c, nil
}

func collectContacts(rows *sql.Rows) ([]Contact, error) {
	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
