package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists call attempts in Postgres.
//
// NOTE: This repository assumes the following table exists:
// - call_attempts (id PK, widget_id, account_id, external_call_id NULL,
//   call_type, started_at, duration_seconds NULL, call_status,
//   created_at, updated_at)
// with indexes on (widget_id, started_at) and (started_at) for the
// window queries and pruning.
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func (r *PostgresRepo) Insert(ctx context.Context, a CallAttempt) error {
	if a.ID == "" || a.WidgetID == "" || a.AccountID == "" {
		return ErrInvalidArgument
	}
	now := r.clock().UTC()
	const q = `
INSERT INTO call_attempts (
  id, widget_id, account_id, external_call_id, call_type,
  started_at, duration_seconds, call_status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID,
		a.WidgetID,
		a.AccountID,
		a.ExternalCallID,
		a.CallType,
		a.StartedAt,
		a.DurationSeconds,
		a.Status,
		now,
	)
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (CallAttempt, error) {
	if id == "" {
		return CallAttempt{}, ErrInvalidArgument
	}
	const q = `
SELECT id, widget_id, account_id, external_call_id, call_type,
       started_at, duration_seconds, call_status, created_at, updated_at
FROM call_attempts
WHERE id = $1
`
	var a CallAttempt
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID,
		&a.WidgetID,
		&a.AccountID,
		&a.ExternalCallID,
		&a.CallType,
		&a.StartedAt,
		&a.DurationSeconds,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallAttempt{}, ErrNotFound
		}
		return CallAttempt{}, err
	}
	return a, nil
}

func (r *PostgresRepo) AttachExternalID(ctx context.Context, id, externalCallID string) error {
	if id == "" || externalCallID == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE call_attempts
SET external_call_id = $2, updated_at = $3
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, externalCallID, r.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	const q = `DELETE FROM call_attempts WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) Finalize(ctx context.Context, id string, durationSeconds *int, status CallStatus) error {
	if id == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE call_attempts
SET duration_seconds = $2, call_status = $3, updated_at = $4
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, durationSeconds, status, r.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) CountSince(ctx context.Context, widgetID string, since time.Time) (int, error) {
	if widgetID == "" {
		return 0, ErrInvalidArgument
	}
	const q = `
SELECT COUNT(*)
FROM call_attempts
WHERE widget_id = $1 AND started_at >= $2
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, widgetID, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepo) SumCompletedDurationSince(ctx context.Context, widgetID string, since time.Time) (int, error) {
	if widgetID == "" {
		return 0, ErrInvalidArgument
	}
	const q = `
SELECT COALESCE(SUM(duration_seconds), 0)
FROM call_attempts
WHERE widget_id = $1 AND started_at >= $2 AND duration_seconds IS NOT NULL
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, widgetID, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepo) ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]CallAttempt, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT id, widget_id, account_id, external_call_id, call_type,
       started_at, duration_seconds, call_status, created_at, updated_at
FROM call_attempts
WHERE duration_seconds IS NULL
  AND external_call_id IS NOT NULL
  AND started_at < $1
ORDER BY started_at ASC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallAttempt
	for rows.Next() {
		var a CallAttempt
		if err := rows.Scan(
			&a.ID,
			&a.WidgetID,
			&a.AccountID,
			&a.ExternalCallID,
			&a.CallType,
			&a.StartedAt,
			&a.DurationSeconds,
			&a.Status,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) DeleteOrphansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM call_attempts
WHERE external_call_id IS NULL AND started_at < $1
`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM call_attempts WHERE started_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
