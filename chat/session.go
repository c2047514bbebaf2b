package chat

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// EventKind discriminates session events
type EventKind int

// Event kinds
const (
	EventMessageAdded EventKind = iota
	EventMessageUpdated
	EventTyping
)

// Event describes one observable change to a session
type Event struct {
	Kind    EventKind
	Message Message // copy of the affected message, for message events
	Typing  bool    // for EventTyping
}

// Observer receives session events. Message and typing callbacks run on the
// goroutine driving the exchange, in the order the changes happened, so
// implementations should return quickly and must not call back into the
// session's blocking methods.
type Observer func(Event)

// streamRequest is the request body for a streamed reply
type streamRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Session owns the ordered message log for one conversation and drives at
// most one exchange at a time against the backend. The log is append-only:
// messages are never reordered or removed, only their text and status move
// while a reply streams in. Finalized exchanges are handed to the store
// best effort.
type Session struct {
	client *Client
	store  MessageStore
	auth   AuthContext

	mu        sync.Mutex
	messages  []Message
	observers []Observer
	streaming bool
	closed    bool
	stream    io.Closer
	wg        sync.WaitGroup
}

// NewSession creates a session for one conversation. store may be nil, in
// which case finished exchanges are simply not persisted.
func NewSession(client *Client, store MessageStore, auth AuthContext) *Session {
	return &Session{
		client: client,
		store:  store,
		auth:   auth,
	}
}

// Subscribe registers an observer for message and typing events
func (s *Session) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Messages returns a copy of the current message log in order
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return msgs
}

// LoadHistory pulls up to limit prior messages from the store and places
// them ahead of anything already in the log, oldest first. It is meant to
// be called once, when the conversation is opened.
func (s *Session) LoadHistory(ctx context.Context, limit int) error {
	if s.store == nil {
		return nil
	}
	history, err := s.store.LoadRecent(ctx, s.auth.UserID, limit, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.messages = append(append([]Message{}, history...), s.messages...)
	s.mu.Unlock()

	for _, msg := range history {
		s.emit(Event{Kind: EventMessageAdded, Message: msg})
	}
	return nil
}

// Submit sends text as the user's half of a new exchange. The completed
// user message and the assistant placeholder are both appended before any
// network activity, so the caller sees them immediately; the reply then
// streams into the placeholder on a background goroutine. Submit returns
// the placeholder. A second call while a reply is still streaming returns
// ErrBusy.
func (s *Session) Submit(ctx context.Context, text string) (Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Message{}, ErrClosed
	}
	if s.streaming {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	user := NewMessage(AuthorUser, text, StatusComplete)
	placeholder := NewMessage(AuthorAssistant, "", StatusPending)
	s.messages = append(s.messages, user, placeholder)
	s.streaming = true
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageAdded, Message: user})
	s.emit(Event{Kind: EventMessageAdded, Message: placeholder})

	s.wg.Add(1)
	go s.exchange(ctx, user, placeholder.ID)

	return placeholder, nil
}

// Close marks the session closed and closes any open reply stream, then
// waits for the in-flight exchange to wind down. Persisted messages outlive
// the session. Close must not be called from an observer callback.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stream := s.stream
	s.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	s.wg.Wait()
	return nil
}

// exchange drives one request/reply cycle: persist the user's side, open
// the reply stream, apply frames to the placeholder, and finalize.
func (s *Session) exchange(ctx context.Context, user Message, placeholderID string) {
	defer s.wg.Done()

	// the user's side of the exchange is durable regardless of how the
	// reply turns out
	s.persist(ctx, user)

	body, err := s.client.OpenStream(ctx, "/chat/stream", &streamRequest{Message: user.Text, UserID: s.auth.UserID})
	if err != nil {
		s.fail(placeholderID, err.Error())
		return
	}
	s.setStream(body)
	defer s.setStream(nil)

	for frame := range DecodeFrames(body) {
		switch frame.Kind {
		case FrameTextDelta:
			s.applyDelta(placeholderID, frame.Text)
		case FrameTyping:
			s.emit(Event{Kind: EventTyping, Typing: frame.Typing})
		case FrameDone:
			s.finish(ctx, placeholderID)
			return
		case FrameError:
			s.fail(placeholderID, frame.Err)
			return
		}
	}
	s.finish(ctx, placeholderID)
}

// addPending appends a placeholder message outside the usual submit path,
// used by the voice pipeline while a transcription is outstanding
func (s *Session) addPending(author Author, text string) (Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Message{}, ErrClosed
	}
	msg := NewMessage(author, text, StatusPending)
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageAdded, Message: msg})
	return msg, nil
}

// resolvePending finalizes an in-place placeholder with its real text and
// starts the exchange for it. If another exchange is already streaming the
// text still lands and is persisted, but no reply is requested.
func (s *Session) resolvePending(ctx context.Context, id, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	i := s.locate(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("no message with id %s", id)
	}
	s.messages[i].Text = text
	s.messages[i].Status = StatusComplete
	user := s.messages[i]
	busy := s.streaming
	var placeholder Message
	if !busy {
		placeholder = NewMessage(AuthorAssistant, "", StatusPending)
		s.messages = append(s.messages, placeholder)
		s.streaming = true
	}
	s.mu.Unlock()

	if busy {
		log.Printf("chat: exchange already in flight, message %s recorded without a reply", id)
		s.persist(ctx, user)
		s.emit(Event{Kind: EventMessageUpdated, Message: user})
		return nil
	}

	s.emit(Event{Kind: EventMessageUpdated, Message: user})
	s.emit(Event{Kind: EventMessageAdded, Message: placeholder})
	s.wg.Add(1)
	go s.exchange(ctx, user, placeholder.ID)
	return nil
}

// applyDelta appends delta text to the placeholder and moves it to
// streaming
func (s *Session) applyDelta(id, delta string) {
	s.mu.Lock()
	i := s.locate(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.messages[i].Text += delta
	s.messages[i].Status = StatusStreaming
	msg := s.messages[i]
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageUpdated, Message: msg})
}

// finish completes the placeholder with whatever text accumulated and hands
// it to the store
func (s *Session) finish(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.locate(id)
	var msg Message
	if i >= 0 {
		s.messages[i].Status = StatusComplete
		msg = s.messages[i]
	}
	s.streaming = false
	s.mu.Unlock()

	if i < 0 {
		return
	}
	s.persist(ctx, msg)
	s.emit(Event{Kind: EventMessageUpdated, Message: msg})
}

// fail marks the active placeholder failed and ends the exchange. Partial
// text stays visible alongside the failure; nothing is persisted.
func (s *Session) fail(id, failure string) {
	s.markFailed(id, failure)
	s.mu.Lock()
	s.streaming = false
	s.mu.Unlock()
}

// markFailed marks any message failed without touching the exchange state
func (s *Session) markFailed(id, failure string) {
	s.mu.Lock()
	i := s.locate(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.messages[i].Status = StatusFailed
	s.messages[i].Failure = failure
	msg := s.messages[i]
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageUpdated, Message: msg})
}

// persist hands a finalized message to the store. Failures are logged and
// never roll back what the user can already see.
func (s *Session) persist(ctx context.Context, msg Message) {
	if s.store == nil {
		return
	}
	if err := s.store.Append(ctx, msg, s.auth.UserID); err != nil {
		log.Printf("chat: failed to persist message %s: %v", msg.ID, err)
	}
}

// locate returns the index of the message with the given id, or -1. Recent
// messages sit at the end, so the scan runs backwards.
func (s *Session) locate(id string) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) setStream(body io.Closer) {
	s.mu.Lock()
	closed := s.closed
	s.stream = body
	s.mu.Unlock()
	if closed && body != nil {
		body.Close()
	}
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(ev)
	}
}
