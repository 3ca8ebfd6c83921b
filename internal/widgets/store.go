package widgets

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("widget not found")
	ErrInvalidArgument = errors.New("widget: invalid argument")
)

// Store is the persistence contract for widget configuration.
//
// The admission path only reads; Create/Update exist for the ops surface.
type Store interface {
	GetByID(ctx context.Context, id string) (Widget, error)
	Create(ctx context.Context, w Widget) error
	Update(ctx context.Context, w Widget) error
}

// PostgresStore persists widgets in Postgres.
//
// NOTE: This store assumes the following table exists:
// - widgets (id PK, account_id, name, allowed_domains, call_type,
//   rate_limit_per_window, daily_minutes_enabled, daily_minutes_limit,
//   access_code, provider_api_key, provider_agent_id, created_at, updated_at)
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const widgetColumns = `
id, account_id, name, allowed_domains, call_type,
rate_limit_per_window, daily_minutes_enabled, daily_minutes_limit,
access_code, provider_api_key, provider_agent_id, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Widget, error) {
	if id == "" {
		return Widget{}, ErrInvalidArgument
	}
	const q = `
SELECT` + widgetColumns + `
FROM widgets
WHERE id = $1
`
	var w Widget
	if err := s.db.QueryRowContext(ctx, q, id).Scan(
		&w.ID,
		&w.AccountID,
		&w.Name,
		&w.AllowedDomains,
		&w.CallType,
		&w.RateLimitPerWindow,
		&w.DailyMinutesEnabled,
		&w.DailyMinutesLimit,
		&w.AccessCode,
		&w.ProviderAPIKey,
		&w.ProviderAgentID,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Widget{}, ErrNotFound
		}
		return Widget{}, err
	}
	return w, nil
}

func (s *PostgresStore) Create(ctx context.Context, w Widget) error {
	if err := validate(w); err != nil {
		return err
	}
	now := s.clock().UTC()
	const q = `
INSERT INTO widgets (
  id, account_id, name, allowed_domains, call_type,
  rate_limit_per_window, daily_minutes_enabled, daily_minutes_limit,
  access_code, provider_api_key, provider_agent_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12
)
`
	_, err := s.db.ExecContext(ctx, q,
		w.ID,
		w.AccountID,
		w.Name,
		w.AllowedDomains,
		w.CallType,
		w.RateLimitPerWindow,
		w.DailyMinutesEnabled,
		w.DailyMinutesLimit,
		w.AccessCode,
		w.ProviderAPIKey,
		w.ProviderAgentID,
		now,
	)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, w Widget) error {
	if err := validate(w); err != nil {
		return err
	}
	now := s.clock().UTC()
	const q = `
UPDATE widgets
SET name = $2,
    allowed_domains = $3,
    call_type = $4,
    rate_limit_per_window = $5,
    daily_minutes_enabled = $6,
    daily_minutes_limit = $7,
    access_code = $8,
    provider_api_key = $9,
    provider_agent_id = $10,
    updated_at = $11
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q,
		w.ID,
		w.Name,
		w.AllowedDomains,
		w.CallType,
		w.RateLimitPerWindow,
		w.DailyMinutesEnabled,
		w.DailyMinutesLimit,
		w.AccessCode,
		w.ProviderAPIKey,
		w.ProviderAgentID,
		now,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func validate(w Widget) error {
	if w.ID == "" || w.AccountID == "" {
		return ErrInvalidArgument
	}
	if !w.CallType.Valid() {
		return ErrInvalidArgument
	}
	if w.RateLimitPerWindow < 0 || w.DailyMinutesLimit < 0 {
		return ErrInvalidArgument
	}
	if w.DailyMinutesEnabled && w.DailyMinutesLimit <= 0 {
		return ErrInvalidArgument
	}
	return nil
}
