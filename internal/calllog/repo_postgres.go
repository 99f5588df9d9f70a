package calllog

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists call history.
//
// Assumes a table:
//   - call_log(id, workspace_id, session_id, direction, counterpart_number,
//     counterpart_name, entity_type, entity_id, outcome, fail_reason,
//     duration_seconds, provider_call_id, recording_url, summary,
//     started_at, ended_at, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO call_log (
	id, workspace_id, session_id, direction, counterpart_number,
	counterpart_name, entity_type, entity_id, outcome, fail_reason,
	duration_seconds, provider_call_id, recording_url, summary,
	started_at, ended_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.WorkspaceID, e.SessionID, e.Direction, e.CounterpartNumber,
		e.CounterpartName, e.EntityType, e.EntityID, string(e.Outcome), e.FailReason,
		e.DurationSeconds, e.ProviderCallID, e.RecordingURL, e.Summary,
		e.StartedAt, e.EndedAt, e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Entry, bool, error) {
	const q = `
SELECT id, workspace_id, session_id, direction, counterpart_number,
       counterpart_name, entity_type, entity_id, outcome, fail_reason,
       duration_seconds, provider_call_id, recording_url, summary,
       started_at, ended_at, created_at
FROM call_log
WHERE workspace_id = $1 AND id = $2
`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, workspaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, limit, offset int) ([]Entry, error) {
	const q = `
SELECT id, workspace_id, session_id, direction, counterpart_number,
       counterpart_name, entity_type, entity_id, outcome, fail_reason,
       duration_seconds, provider_call_id, recording_url, summary,
       started_at, ended_at, created_at
FROM call_log
WHERE workspace_id = $1
ORDER BY ended_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SetRecordingURL(ctx context.Context, workspaceID, id, url string) (bool, error) {
	const q = `
UPDATE call_log SET recording_url = $3
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id, url)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepo) SetSummary(ctx context.Context, workspaceID, id, summary string) (bool, error) {
	const q = `
UPDATE call_log SET summary = $3
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id, summary)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var outcome string
	if err := row.Scan(
		&e.ID, &e.WorkspaceID, &e.SessionID, &e.Direction, &e.CounterpartNumber,
		&e.CounterpartName, &e.EntityType, &e.EntityID, &outcome, &e.FailReason,
		&e.DurationSeconds, &e.ProviderCallID, &e.RecordingURL, &e.Summary,
		&e.StartedAt, &e.EndedAt, &e.CreatedAt,
	); err != nil {
		return Entry{}, err
	}
	e.Outcome = Outcome(outcome)
	return e, nil
}
