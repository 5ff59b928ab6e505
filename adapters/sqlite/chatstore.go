package sqlite

import (
	"context"
	"fmt"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/ports"
)

// ChatStore implements ports.ChatHistoryStore using SQLite.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a new SQLite chat store.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// Append stores a message.
func (s *ChatStore) Append(ctx context.Context, m chat.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, doc_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.UserID, chat.DocIDOrDefault(m.DocID), string(m.Role), m.Content, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// List returns messages for a user and document, oldest first.
func (s *ChatStore) List(ctx context.Context, userID, docID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, doc_id, role, content, created_at
		FROM chat_messages
		WHERE user_id = ? AND doc_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID, chat.DocIDOrDefault(docID))
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		var role, createdAt string
		if err := rows.Scan(&m.ID, &m.UserID, &m.DocID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = chat.Role(role)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ensure interface compliance.
var _ ports.ChatHistoryStore = (*ChatStore)(nil)
