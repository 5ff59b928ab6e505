package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/ports"
)

// ChatStore implements ports.ChatHistoryStore using one Redis list per
// user and document.
type ChatStore struct {
	c *Client
}

// NewChatStore creates a new Redis chat store.
func NewChatStore(c *Client) *ChatStore {
	return &ChatStore{c: c}
}

func (s *ChatStore) key(userID, docID string) string {
	return s.c.prefix + ":chat:" + segment(userID) + ":" + chat.DocIDOrDefault(docID)
}

// Append stores a message.
func (s *ChatStore) Append(ctx context.Context, m chat.Message) error {
	m.DocID = chat.DocIDOrDefault(m.DocID)
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	if err := s.c.rdb.RPush(ctx, s.key(m.UserID, m.DocID), data).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

// List returns messages for a user and document in the order they were appended.
func (s *ChatStore) List(ctx context.Context, userID, docID string) ([]chat.Message, error) {
	raw, err := s.c.rdb.LRange(ctx, s.key(userID, docID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	out := make([]chat.Message, 0, len(raw))
	for _, r := range raw {
		var m chat.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("unmarshal chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

var _ ports.ChatHistoryStore = (*ChatStore)(nil)
