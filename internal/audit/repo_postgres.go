package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events.
//
// Assumes a table:
//   - audit_events(id, workspace_id, type, actor_user_id, actor_role,
//     ip_address, expense_id, vendor_id, owner_id, call_sid, message,
//     metadata, created_at)
//
// The table is INSERT-only; no update or delete statements exist here on
// purpose.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, workspace_id, type, actor_user_id, actor_role, ip_address,
	expense_id, vendor_id, owner_id, call_sid, message, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.WorkspaceID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		e.ExpenseID, e.VendorID, e.OwnerID, e.CallSID, e.Message, e.Metadata, e.CreatedAt)
	return err
}
