package convo

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quiplabs/quip/pkg/chat"
)

// SQLiteStore is a Store backed by a SQLite database, used when chat
// history should survive restarts. Use ":memory:" for an in-memory
// database.
type SQLiteStore struct {
	db *sql.DB

	// go-sqlite3 serializes writes internally, but appends here are
	// read-then-insert and need to be atomic with respect to each other.
	mu sync.Mutex
	notifier
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS exchanges (
	conversation_id TEXT NOT NULL,
	position        INTEGER NOT NULL,
	question        TEXT NOT NULL,
	response        TEXT NOT NULL,
	PRIMARY KEY (conversation_id, position),
	FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);
`

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store
// at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check id: %w", err)
	}
	if exists > 0 {
		return nil, ErrDuplicateID{ID: id}
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO conversations (id) VALUES (?)`, id); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return &Conversation{ID: id, History: []chat.Exchange{}}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Conversation, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check id: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound{ID: id}
	}

	history, err := s.history(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Conversation{ID: id, History: history}, nil
}

// IndexOf walks ids in insertion order, matching the linear-scan
// contract of the interface.
func (s *SQLiteStore) IndexOf(ctx context.Context, id string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations ORDER BY seq`)
	if err != nil {
		return -1, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()

	idx := 0
	for rows.Next() {
		var got string
		if err := rows.Scan(&got); err != nil {
			return -1, fmt.Errorf("scan id: %w", err)
		}
		if got == id {
			return idx, nil
		}
		idx++
	}
	if err := rows.Err(); err != nil {
		return -1, err
	}

	return -1, ErrNotFound{ID: id}
}

func (s *SQLiteStore) AppendExchange(ctx context.Context, id string, ex chat.Exchange) ([]chat.Exchange, error) {
	s.mu.Lock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("check id: %w", err)
	}
	if exists == 0 {
		s.mu.Unlock()
		return nil, ErrNotFound{ID: id}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (conversation_id, position, question, response)
		 VALUES (?, (SELECT COUNT(*) FROM exchanges WHERE conversation_id = ?), ?, ?)`,
		id, id, ex.Question, ex.Response,
	)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("insert exchange: %w", err)
	}

	history, err := s.history(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.publish(Update{ConversationID: id, HistoryLen: len(history)})
	return history, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		history, err := s.history(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, &Conversation{ID: id, History: history})
	}
	return out, nil
}

func (s *SQLiteStore) Subscribe() <-chan Update {
	return s.subscribe()
}

func (s *SQLiteStore) Close() error {
	s.closeAll()
	return s.db.Close()
}

func (s *SQLiteStore) history(ctx context.Context, id string) ([]chat.Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, response FROM exchanges WHERE conversation_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []chat.Exchange{}
	for rows.Next() {
		var ex chat.Exchange
		if err := rows.Scan(&ex.Question, &ex.Response); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		history = append(history, ex)
	}
	return history, rows.Err()
}
