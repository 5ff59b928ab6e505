package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/artpar/documind/domain/chat"
)

func TestChatStore_Append_DefaultsDocID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs("m1", "u1", chat.DefaultDocID, "user", "hello", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	m := chat.Message{ID: "m1", UserID: "u1", Role: chat.RoleUser, Content: "hello", CreatedAt: at}
	if err := NewChatStore(db).Append(context.Background(), m); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestChatStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "doc_id", "role", "content", "created_at"}).
		AddRow("m1", "u1", "doc-1", "user", "summarize", at).
		AddRow("m2", "u1", "doc-1", "assistant", "It is a contract.", at.Add(time.Second))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, doc_id, role, content, created_at FROM chat_messages WHERE user_id = $1 AND doc_id = $2")).
		WithArgs("u1", "doc-1").
		WillReturnRows(rows)

	got, err := NewChatStore(db).List(context.Background(), "u1", "doc-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Role != chat.RoleAssistant || got[1].Content != "It is a contract." {
		t.Errorf("second message = %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
