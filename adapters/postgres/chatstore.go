package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/ports"
)

// ChatStore implements ports.ChatHistoryStore using PostgreSQL.
type ChatStore struct {
	db *sql.DB
}

// NewChatStore creates a new PostgreSQL chat store.
func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

// Append stores a message.
func (s *ChatStore) Append(ctx context.Context, m chat.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, doc_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.UserID, chat.DocIDOrDefault(m.DocID), string(m.Role), m.Content, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// List returns messages for a user and document, oldest first.
func (s *ChatStore) List(ctx context.Context, userID, docID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, doc_id, role, content, created_at FROM chat_messages WHERE user_id = $1 AND doc_id = $2 ORDER BY created_at ASC, id ASC",
		userID, chat.DocIDOrDefault(docID))
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.DocID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Role = chat.Role(role)
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ ports.ChatHistoryStore = (*ChatStore)(nil)

