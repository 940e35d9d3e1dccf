package convo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/quiplabs/quip/pkg/chat"
)

// MemoryStore is an in-memory Store. Conversations live in a slice in
// insertion order; lookups are a linear scan, which is fine at the
// scale of a single user's chat sessions.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations []*Conversation
	notifier
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(id) >= 0 {
		return nil, ErrDuplicateID{ID: id}
	}

	c := &Conversation{ID: id, History: []chat.Exchange{}}
	s.conversations = append(s.conversations, c)
	return cloneConversation(c), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, ErrNotFound{ID: id}
	}

	return cloneConversation(s.conversations[idx]), nil
}

func (s *MemoryStore) IndexOf(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return -1, ErrNotFound{ID: id}
	}

	return idx, nil
}

func (s *MemoryStore) AppendExchange(ctx context.Context, id string, ex chat.Exchange) ([]chat.Exchange, error) {
	s.mu.Lock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound{ID: id}
	}

	c := s.conversations[idx]
	c.History = append(c.History, ex)
	history := make([]chat.Exchange, len(c.History))
	copy(history, c.History)
	s.mu.Unlock()

	s.publish(Update{ConversationID: id, HistoryLen: len(history)})
	return history, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = cloneConversation(c)
	}
	return out, nil
}

func (s *MemoryStore) Subscribe() <-chan Update {
	return s.subscribe()
}

func (s *MemoryStore) Close() error {
	s.closeAll()
	return nil
}

// indexOfLocked is the linear scan behind IndexOf. Caller holds the lock.
func (s *MemoryStore) indexOfLocked(id string) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// cloneConversation copies a conversation so callers can't mutate
// store state through the returned pointer.
func cloneConversation(c *Conversation) *Conversation {
	history := make([]chat.Exchange, len(c.History))
	copy(history, c.History)
	return &Conversation{ID: c.ID, History: history}
}
