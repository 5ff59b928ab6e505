package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/ports"
)

// ChatStore is an in-memory implementation of ports.ChatHistoryStore.
type ChatStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message // key: userID + "\x00" + docID
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		messages: make(map[string][]chat.Message),
	}
}

func chatKey(userID, docID string) string {
	return userID + "\x00" + docID
}

// Append stores a message.
func (s *ChatStore) Append(ctx context.Context, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := chatKey(m.UserID, m.DocID)
	s.messages[k] = append(s.messages[k], m)
	return nil
}

// List returns messages for a user and document, oldest first.
func (s *ChatStore) List(ctx context.Context, userID, docID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]chat.Message{}, s.messages[chatKey(userID, docID)]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Ensure interface compliance.
var _ ports.ChatHistoryStore = (*ChatStore)(nil)
