package chat

import (
	"context"
	"sync"
	"time"
)

// MessageStore is the single point of contact with durable message history
type MessageStore interface {
	// Append stores a finalized message for a user. Appending an id that
	// already exists is a no-op, not an error, so a save attempted twice
	// cannot create a duplicate row.
	Append(ctx context.Context, msg Message, userID string) error
	// LoadRecent returns up to limit messages created before the given
	// time, or the newest ones when before is zero, in ascending
	// chronological order.
	LoadRecent(ctx context.Context, userID string, limit int, before time.Time) ([]Message, error)
}

// MemoryStore is an in-memory MessageStore, used by tests and as the local
// fallback when no remote store is configured
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]Message // per user, insertion order
	seen map[string]struct{}  // message ids already stored
}

var _ MessageStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string][]Message),
		seen: make(map[string]struct{}),
	}
}

// Append stores msg for userID once; a repeated id is dropped
func (s *MemoryStore) Append(ctx context.Context, msg Message, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[msg.ID]; ok {
		return nil
	}
	s.seen[msg.ID] = struct{}{}
	s.rows[userID] = append(s.rows[userID], msg)
	return nil
}

// LoadRecent returns the newest limit messages older than before, oldest
// first
func (s *MemoryStore) LoadRecent(ctx context.Context, userID string, limit int, before time.Time) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match []Message
	for _, msg := range s.rows[userID] {
		if !before.IsZero() && !msg.CreatedAt.Before(before) {
			continue
		}
		match = append(match, msg)
	}
	if limit > 0 && len(match) > limit {
		match = match[len(match)-limit:]
	}
	out := make([]Message, len(match))
	copy(out, match)
	return out, nil
}
