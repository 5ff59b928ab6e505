package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// UsageStore implements ports.UsageLog using PostgreSQL.
type UsageStore struct {
	db *sql.DB
}

// NewUsageStore creates a new PostgreSQL usage store.
func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db}
}

// countQuery builds the count statement for a filter.
func countQuery(f usage.Filter) (string, []any) {
	query := "SELECT COUNT(*) FROM usage_events WHERE created_at >= $1"
	args := []any{f.Since.UTC()}

	if f.Identity.UserID != "" {
		args = append(args, f.Identity.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	} else {
		args = append(args, f.Identity.Address)
		query += fmt.Sprintf(" AND user_id IS NULL AND ip_address = $%d", len(args))
	}

	switch f.Match {
	case usage.MatchOnly:
		args = append(args, f.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	case usage.MatchExcept:
		args = append(args, f.Action)
		query += fmt.Sprintf(" AND action <> $%d", len(args))
	}
	return query, args
}

// Count returns the number of events matching the filter.
func (s *UsageStore) Count(ctx context.Context, f usage.Filter) (int64, error) {
	query, args := countQuery(f)

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count usage events: %w", err)
	}
	return n, nil
}

// Append stores one event.
func (s *UsageStore) Append(ctx context.Context, e usage.Event) error {
	var details any
	if len(e.Details) > 0 {
		details = string(e.Details)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, user_id, ip_address, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, nullString(e.Identity.UserID), nullString(e.Identity.Address), e.Action, details, e.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *UsageStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure interface compliance.
var (
	_ ports.UsageLog = (*UsageStore)(nil)
	_ ports.Pinger   = (*UsageStore)(nil)
)
