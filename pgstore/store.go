package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spidervirus/FutureSelf/chat"
)

// Compile-time check to ensure Store implements chat.MessageStore
var _ chat.MessageStore = (*Store)(nil)

// Store persists conversation messages in PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing connection pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pooled connection for the given DSN and verifies it
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool
func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    message_id text PRIMARY KEY,
    user_id    text NOT NULL,
    content    text NOT NULL,
    author_id  text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS messages_user_created_idx ON messages (user_id, created_at);
`

// EnsureSchema creates the messages table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const appendMessage = `
INSERT INTO messages (message_id, user_id, content, author_id, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (message_id) DO NOTHING;
`

// Append stores one message. A message ID the store has already seen is a
// no-op, so replays after a retried persist are safe.
func (s *Store) Append(ctx context.Context, msg chat.Message, userID string) error {
	authorID := userID
	if msg.Author == chat.AuthorAssistant {
		authorID = chat.AssistantAuthorID
	}

	_, err := s.pool.Exec(ctx, appendMessage, msg.ID, userID, msg.Text, authorID, msg.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("failed to insert message: %s (code %s)", pgErr.Message, pgErr.Code)
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

const loadRecent = `
SELECT message_id, content, author_id, created_at
FROM messages
WHERE user_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
ORDER BY created_at DESC
LIMIT $3;
`

// LoadRecent returns the newest messages for the user in ascending time
// order. A non-zero before restricts the page to rows older than it.
func (s *Store) LoadRecent(ctx context.Context, userID string, limit int, before time.Time) ([]chat.Message, error) {
	var cutoff *time.Time
	if !before.IsZero() {
		cutoff = &before
	}

	rows, err := s.pool.Query(ctx, loadRecent, userID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var (
			msg      chat.Message
			authorID string
		)
		if err := rows.Scan(&msg.ID, &msg.Text, &authorID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Author = chat.AuthorUser
		if authorID == chat.AssistantAuthorID {
			msg.Author = chat.AuthorAssistant
		}
		msg.Status = chat.StatusComplete
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message rows: %w", err)
	}

	// newest page from the database, oldest first for the caller
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
