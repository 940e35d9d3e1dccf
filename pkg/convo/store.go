// Package convo implements the conversation store: an ordered log of
// conversations, each holding an append-only history of
// question/response exchanges.
package convo

import (
	"context"

	"github.com/quiplabs/quip/pkg/chat"
)

// Conversation is one conversation thread. Identity is the ID, which
// must be unique within a store. The history is only ever appended
// to; it is never reordered or truncated.
type Conversation struct {
	ID      string          `json:"id"`
	History []chat.Exchange `json:"history"`
}

// Update is published to subscribers after every successful append.
type Update struct {
	ConversationID string // Which conversation changed
	HistoryLen     int    // History length after the append
}

// Store defines the interface for persisting and retrieving
// conversations. Stores are single-writer from the orchestrator's
// point of view, but implementations still serialize internally since
// the server runs real goroutines.
type Store interface {
	// Create adds a new empty conversation. An empty id is replaced
	// with a fresh one. A duplicate id is rejected with ErrDuplicateID.
	Create(ctx context.Context, id string) (*Conversation, error)

	// Get retrieves a conversation by id. Returns ErrNotFound if it
	// doesn't exist.
	Get(ctx context.Context, id string) (*Conversation, error)

	// IndexOf returns the position of the first conversation with the
	// given id in insertion order, or -1 and ErrNotFound. Callers must
	// treat a not-found result as fatal for the current operation.
	IndexOf(ctx context.Context, id string) (int, error)

	// AppendExchange appends exactly one exchange to the conversation
	// with the given id and returns the updated history. Returns
	// ErrNotFound if the id is absent. Subscribers are notified after
	// a successful append.
	AppendExchange(ctx context.Context, id string, ex chat.Exchange) ([]chat.Exchange, error)

	// List returns all conversations in insertion order.
	List(ctx context.Context) ([]*Conversation, error)

	// Subscribe returns a channel receiving an Update after every
	// successful append. Slow subscribers may miss updates; the store
	// never blocks on them.
	Subscribe() <-chan Update

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a conversation id is absent from the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "conversation not found"
	}

	return "conversation not found: " + e.ID
}

// ErrDuplicateID is returned when creating a conversation whose id
// already exists. Duplicate ids would make IndexOf ambiguous, so they
// are rejected at the door.
type ErrDuplicateID struct {
	ID string
}

func (e ErrDuplicateID) Error() string {
	return "conversation id already exists: " + e.ID
}
