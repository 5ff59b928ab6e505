package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/artpar/documind/domain/usage"
)

var today = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestCountQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    usage.Filter
		wantQuery string
		wantArgs  int
	}{
		{
			name:      "user any",
			filter:    usage.Filter{Identity: usage.User("u1"), Match: usage.MatchAny, Since: today},
			wantQuery: "SELECT COUNT(*) FROM usage_events WHERE created_at >= $1 AND user_id = $2",
			wantArgs:  2,
		},
		{
			name:      "user only ai",
			filter:    usage.Filter{Identity: usage.User("u1"), Match: usage.MatchOnly, Action: usage.ActionAIChat, Since: today},
			wantQuery: "SELECT COUNT(*) FROM usage_events WHERE created_at >= $1 AND user_id = $2 AND action = $3",
			wantArgs:  3,
		},
		{
			name:      "user except ai",
			filter:    usage.Filter{Identity: usage.User("u1"), Match: usage.MatchExcept, Action: usage.ActionAIChat, Since: today},
			wantQuery: "SELECT COUNT(*) FROM usage_events WHERE created_at >= $1 AND user_id = $2 AND action <> $3",
			wantArgs:  3,
		},
		{
			name:      "guest",
			filter:    usage.Filter{Identity: usage.Guest("1.2.3.4"), Match: usage.MatchAny, Since: today},
			wantQuery: "SELECT COUNT(*) FROM usage_events WHERE created_at >= $1 AND user_id IS NULL AND ip_address = $2",
			wantArgs:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := countQuery(tt.filter)
			if q != tt.wantQuery {
				t.Errorf("query = %q, want %q", q, tt.wantQuery)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestUsageStore_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := NewUsageStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM usage_events WHERE created_at >= $1 AND user_id = $2 AND action <> $3")).
		WithArgs(today, "u1", usage.ActionAIChat).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	f := usage.Filter{Identity: usage.User("u1"), Match: usage.MatchExcept, Action: usage.ActionAIChat, Since: today}
	n, err := store.Count(context.Background(), f)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Errorf("Count() = %d, want 4", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUsageStore_CountError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM usage_events")).
		WillReturnError(boom)

	_, err = NewUsageStore(db).Count(context.Background(), usage.Filter{Identity: usage.Guest("1.2.3.4"), Since: today})
	if !errors.Is(err, boom) {
		t.Errorf("Count() error = %v, want wrapping %v", err, boom)
	}
}

func TestUsageStore_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewUsageStore(db)
	at := today.Add(3 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_events")).
		WithArgs("e1", "u1", nil, usage.ActionMerge, `{"files":3}`, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_events")).
		WithArgs("e2", nil, "1.2.3.4", usage.ActionSplit, nil, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := context.Background()
	if err := store.Append(ctx, usage.NewEvent("e1", usage.User("u1"), usage.ActionMerge, json.RawMessage(`{"files":3}`), at)); err != nil {
		t.Fatalf("Append user: %v", err)
	}
	if err := store.Append(ctx, usage.NewEvent("e2", usage.Guest("1.2.3.4"), usage.ActionSplit, nil, at)); err != nil {
		t.Fatalf("Append guest: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
