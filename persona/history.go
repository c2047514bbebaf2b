package persona

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"
)

// Message is one turn of an AI conversation in the completions wire format
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Conversation is the rolling context the persona carries for one user
type Conversation struct {
	UserID    string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationStore defines the interface for conversation caching
type ConversationStore interface {
	Get(userID string) (*Conversation, error)
	Ensure(userID string) (*Conversation, error)
	AddMessages(userID string, msgs []Message) error
}

// LRUStore implements ConversationStore with a byte-capped LRU cache
type LRUStore struct {
	mu       sync.Mutex
	maxBytes int
	curBytes int
	cache    map[string]*list.Element
	lru      *list.List
}

type cacheEntry struct {
	userID string
	conv   *Conversation
	bytes  int
}

// NewLRUStore creates a new LRU conversation store
func NewLRUStore(maxBytes int) *LRUStore {
	return &LRUStore{
		maxBytes: maxBytes,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (s *LRUStore) estimateBytes(conv *Conversation) int {
	data, _ := json.Marshal(conv)
	return len(data)
}

// snapshot copies the conversation so callers never share slices with the
// cache
func snapshot(conv *Conversation) *Conversation {
	out := *conv
	out.Messages = append([]Message(nil), conv.Messages...)
	return &out
}

// Get retrieves a user's conversation, or nil if none is cached
func (s *LRUStore) Get(userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.cache[userID]; ok {
		s.lru.MoveToFront(elem)
		return snapshot(elem.Value.(*cacheEntry).conv), nil
	}
	return nil, nil
}

// Ensure retrieves a user's conversation, creating an empty one if needed
func (s *LRUStore) Ensure(userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.cache[userID]; ok {
		s.lru.MoveToFront(elem)
		return snapshot(elem.Value.(*cacheEntry).conv), nil
	}

	now := time.Now()
	conv := &Conversation{
		UserID:    userID,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	bytes := s.estimateBytes(conv)
	s.evictIfNeeded(bytes)

	entry := &cacheEntry{userID: userID, conv: conv, bytes: bytes}
	elem := s.lru.PushFront(entry)
	s.cache[userID] = elem
	s.curBytes += bytes

	return snapshot(conv), nil
}

// AddMessages appends messages to a user's conversation. Users the cache has
// already evicted are skipped.
func (s *LRUStore) AddMessages(userID string, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.cache[userID]
	if !ok {
		return nil
	}

	entry := elem.Value.(*cacheEntry)
	oldBytes := entry.bytes

	entry.conv.Messages = append(entry.conv.Messages, msgs...)
	entry.conv.UpdatedAt = time.Now()

	newBytes := s.estimateBytes(entry.conv)
	entry.bytes = newBytes
	s.curBytes += (newBytes - oldBytes)

	s.lru.MoveToFront(elem)
	s.evictIfNeeded(0)

	return nil
}

func (s *LRUStore) evictIfNeeded(additionalBytes int) {
	for s.curBytes+additionalBytes > s.maxBytes && s.lru.Len() > 0 {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		s.lru.Remove(oldest)
		delete(s.cache, entry.userID)
		s.curBytes -= entry.bytes
	}
}
