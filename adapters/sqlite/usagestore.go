package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// UsageStore implements ports.UsageLog using SQLite.
type UsageStore struct {
	db *DB
}

// NewUsageStore creates a new SQLite usage store.
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Count returns the number of events matching the filter.
func (s *UsageStore) Count(ctx context.Context, f usage.Filter) (int64, error) {
	query := "SELECT COUNT(*) FROM usage_events WHERE created_at >= ?"
	args := []any{formatTime(f.Since)}

	if f.Identity.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, f.Identity.UserID)
	} else {
		query += " AND user_id IS NULL AND ip_address = ?"
		args = append(args, f.Identity.Address)
	}

	switch f.Match {
	case usage.MatchOnly:
		query += " AND action = ?"
		args = append(args, f.Action)
	case usage.MatchExcept:
		query += " AND action != ?"
		args = append(args, f.Action)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage events: %w", err)
	}
	return n, nil
}

// Append stores one event.
func (s *UsageStore) Append(ctx context.Context, e usage.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, user_id, ip_address, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, nullString(e.Identity.UserID), nullString(e.Identity.Address), e.Action,
		nullString(string(e.Details)), formatTime(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
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
