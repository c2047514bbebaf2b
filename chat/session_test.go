package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spidervirus/FutureSelf/chat"
)

func streamHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
			if ok {
				flusher.Flush()
			}
		}
	}
}

func newTestSession(serverURL string, store chat.MessageStore) *chat.Session {
	auth := chat.AuthContext{UserID: "user-1", AccessToken: "token-1"}
	client := chat.NewClient(chat.Config{
		BaseURL:       serverURL,
		Auth:          auth,
		Timeout:       2 * time.Second,
		RetryInterval: time.Millisecond,
	})
	return chat.NewSession(client, store, auth)
}

// watchTerminal emits every message that reaches a terminal status
func watchTerminal(session *chat.Session) <-chan chat.Message {
	ch := make(chan chat.Message, 8)
	session.Subscribe(func(ev chat.Event) {
		if ev.Kind != chat.EventMessageUpdated {
			return
		}
		if ev.Message.Status == chat.StatusComplete || ev.Message.Status == chat.StatusFailed {
			ch <- ev.Message
		}
	})
	return ch
}

func waitTerminal(t *testing.T, ch <-chan chat.Message, author chat.Author) chat.Message {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Author == author {
				return msg
			}
		case <-timeout:
			t.Fatal("Timed out waiting for the exchange to finish")
		}
	}
}

// eventLog records session events for later inspection
type eventLog struct {
	mu     sync.Mutex
	events []chat.Event
}

func (l *eventLog) record(ev chat.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []chat.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]chat.Event, len(l.events))
	copy(out, l.events)
	return out
}

func TestSubmitAppendsBothSidesBeforeReply(t *testing.T) {
	gate := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }
	defer release()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-gate
		streamHandler(`data: {"done": true}`)(w, r)
	}))
	defer server.Close()

	session := newTestSession(server.URL, nil)
	terminal := watchTerminal(session)

	placeholder, err := session.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	msgs := session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages immediately after submit, got %d", len(msgs))
	}
	if msgs[0].Author != chat.AuthorUser || msgs[0].Status != chat.StatusComplete || msgs[0].Text != "hello" {
		t.Errorf("Unexpected user message: %+v", msgs[0])
	}
	if msgs[1].Author != chat.AuthorAssistant || msgs[1].Status != chat.StatusPending || msgs[1].Text != "" {
		t.Errorf("Unexpected placeholder: %+v", msgs[1])
	}
	if msgs[1].ID != placeholder.ID {
		t.Errorf("Submit returned id %s but placeholder has %s", placeholder.ID, msgs[1].ID)
	}

	release()
	waitTerminal(t, terminal, chat.AuthorAssistant)
	session.Close()
}

func TestStreamedReplyAccumulates(t *testing.T) {
	type streamBody struct {
		Message string `json:"message"`
		UserID  string `json:"user_id"`
	}
	var mu sync.Mutex
	var got streamBody

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body streamBody
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = body
		mu.Unlock()
		streamHandler(
			`data: {"isTyping": true}`,
			`data: {"text": "Hel"}`,
			`data: {"text": "lo"}`,
			`data: {"isTyping": false}`,
			`data: {"done": true}`,
		)(w, r)
	}))
	defer server.Close()

	store := chat.NewMemoryStore()
	session := newTestSession(server.URL, store)
	terminal := watchTerminal(session)

	if _, err := session.Submit(context.Background(), "how are you"); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	reply := waitTerminal(t, terminal, chat.AuthorAssistant)
	if reply.Status != chat.StatusComplete {
		t.Errorf("Expected complete reply, got %s", reply.Status)
	}
	if reply.Text != "Hello" {
		t.Errorf("Expected accumulated text %q, got %q", "Hello", reply.Text)
	}

	mu.Lock()
	if got.Message != "how are you" || got.UserID != "user-1" {
		t.Errorf("Unexpected request body: %+v", got)
	}
	mu.Unlock()

	rows, err := store.LoadRecent(context.Background(), "user-1", 10, time.Time{})
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected both sides persisted, got %d rows", len(rows))
	}
	if rows[0].Author != chat.AuthorUser || rows[1].Author != chat.AuthorAssistant {
		t.Errorf("Rows out of order: %s then %s", rows[0].Author, rows[1].Author)
	}
	if rows[1].Text != "Hello" {
		t.Errorf("Persisted reply text %q, expected %q", rows[1].Text, "Hello")
	}

	session.Close()
}

func TestTypingFramesDoNotChangeStatus(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`data: {"isTyping": true}`,
		`data: {"text": "Hi"}`,
		`data: {"done": true}`,
	))
	defer server.Close()

	session := newTestSession(server.URL, nil)
	log := &eventLog{}
	session.Subscribe(log.record)
	terminal := watchTerminal(session)

	if _, err := session.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	waitTerminal(t, terminal, chat.AuthorAssistant)
	session.Close()

	events := log.snapshot()
	typingAt, updatedAt := -1, -1
	for i, ev := range events {
		if ev.Kind == chat.EventTyping && typingAt == -1 {
			typingAt = i
		}
		if ev.Kind == chat.EventMessageUpdated && updatedAt == -1 {
			updatedAt = i
		}
		if ev.Kind == chat.EventMessageUpdated && ev.Message.Status == chat.StatusPending {
			t.Error("An update event carried pending status")
		}
	}
	if typingAt == -1 {
		t.Fatal("Expected a typing event")
	}
	if updatedAt != -1 && typingAt > updatedAt {
		t.Error("Typing arrived after the first delta, expected it first")
	}
}

func TestErrorFrameMarksReplyFailed(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`data: {"text": "Hel"}`,
		`data: {"error": "model crashed"}`,
	))
	defer server.Close()

	store := chat.NewMemoryStore()
	session := newTestSession(server.URL, store)
	terminal := watchTerminal(session)

	if _, err := session.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	reply := waitTerminal(t, terminal, chat.AuthorAssistant)
	if reply.Status != chat.StatusFailed {
		t.Errorf("Expected failed status, got %s", reply.Status)
	}
	if reply.Text != "Hel" {
		t.Errorf("Partial text was discarded: got %q", reply.Text)
	}
	if reply.Failure != "model crashed" {
		t.Errorf("Expected failure text %q, got %q", "model crashed", reply.Failure)
	}

	rows, err := store.LoadRecent(context.Background(), "user-1", 10, time.Time{})
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	if len(rows) != 1 || rows[0].Author != chat.AuthorUser {
		t.Errorf("Expected only the user message persisted, got %d rows", len(rows))
	}

	session.Close()
}

func TestStreamEndWithoutDoneCompletes(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`data: {"text": "Hi"}`,
	))
	defer server.Close()

	store := chat.NewMemoryStore()
	session := newTestSession(server.URL, store)
	terminal := watchTerminal(session)

	if _, err := session.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	reply := waitTerminal(t, terminal, chat.AuthorAssistant)
	if reply.Status != chat.StatusComplete {
		t.Errorf("Expected implicit completion, got %s", reply.Status)
	}
	if reply.Text != "Hi" {
		t.Errorf("Expected text %q, got %q", "Hi", reply.Text)
	}

	rows, _ := store.LoadRecent(context.Background(), "user-1", 10, time.Time{})
	if len(rows) != 2 {
		t.Errorf("Expected both sides persisted, got %d rows", len(rows))
	}

	session.Close()
}

func TestSubmitWhileStreamingRejected(t *testing.T) {
	gate := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }
	defer release()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-gate
		streamHandler(`data: {"done": true}`)(w, r)
	}))
	defer server.Close()

	session := newTestSession(server.URL, nil)
	terminal := watchTerminal(session)

	if _, err := session.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := session.Submit(context.Background(), "second"); !errors.Is(err, chat.ErrBusy) {
		t.Fatalf("Expected ErrBusy for a concurrent submit, got %v", err)
	}

	release()
	waitTerminal(t, terminal, chat.AuthorAssistant)

	// the session is idle again once the reply finalizes
	if _, err := session.Submit(context.Background(), "third"); err != nil {
		t.Fatalf("Failed to submit after the exchange finished: %v", err)
	}
	waitTerminal(t, terminal, chat.AuthorAssistant)
	session.Close()
}

func TestTransportFailureMarksReplyFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := chat.NewMemoryStore()
	session := newTestSession(server.URL, store)
	terminal := watchTerminal(session)

	if _, err := session.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	reply := waitTerminal(t, terminal, chat.AuthorAssistant)
	if reply.Status != chat.StatusFailed {
		t.Errorf("Expected failed status, got %s", reply.Status)
	}
	if !strings.Contains(reply.Failure, "503") {
		t.Errorf("Expected failure to mention the status, got %q", reply.Failure)
	}

	rows, _ := store.LoadRecent(context.Background(), "user-1", 10, time.Time{})
	if len(rows) != 1 {
		t.Errorf("Expected only the user message persisted, got %d rows", len(rows))
	}

	session.Close()
}

func TestLoadHistoryReplaysAscending(t *testing.T) {
	store := chat.NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		msg := chat.Message{
			ID:        fmt.Sprintf("m%d", i),
			Author:    chat.AuthorUser,
			Text:      fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    chat.StatusComplete,
		}
		if err := store.Append(context.Background(), msg, "user-1"); err != nil {
			t.Fatalf("Failed to seed store: %v", err)
		}
	}

	session := newTestSession("http://127.0.0.1:0", store)
	if err := session.LoadHistory(context.Background(), 50); err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}

	msgs := session.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if want := fmt.Sprintf("message %d", i); msg.Text != want {
			t.Errorf("Position %d holds %q, expected %q", i, msg.Text, want)
		}
	}

	session.Close()
}

func TestCloseClosesOpenStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"isTyping\": true}\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	session := newTestSession(server.URL, nil)
	typing := make(chan struct{}, 1)
	session.Subscribe(func(ev chat.Event) {
		if ev.Kind == chat.EventTyping {
			select {
			case typing <- struct{}{}:
			default:
			}
		}
	})

	placeholder, err := session.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	select {
	case <-typing:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the stream to open")
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	msgs := session.Messages()
	final := msgs[len(msgs)-1]
	if final.ID != placeholder.ID {
		t.Fatalf("Expected the placeholder to be finalized, got %+v", final)
	}
	if final.Status != chat.StatusComplete {
		t.Errorf("Expected the interrupted reply to finalize complete, got %s", final.Status)
	}
}

func TestSubmitAfterCloseRejected(t *testing.T) {
	session := newTestSession("http://127.0.0.1:0", nil)
	session.Close()
	if _, err := session.Submit(context.Background(), "hello"); !errors.Is(err, chat.ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
}
