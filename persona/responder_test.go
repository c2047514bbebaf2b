package persona_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spidervirus/FutureSelf/persona"
)

// collectChunks drains the stream and returns the concatenated content and
// the final finish reason
func collectChunks(t *testing.T, ch <-chan persona.StreamChunk) (string, string) {
	t.Helper()

	var text strings.Builder
	finish := ""
	timeout := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return text.String(), finish
			}
			if chunk.Err != nil {
				t.Fatalf("Unexpected stream error: %v", chunk.Err)
			}
			text.WriteString(chunk.Content)
			if chunk.FinishReason != "" {
				finish = chunk.FinishReason
			}
		case <-timeout:
			t.Fatal("Timed out waiting for chunks")
		}
	}
}

func TestScriptedResponderEchoesMessage(t *testing.T) {
	responder := &persona.ScriptedResponder{}

	ch, err := responder.Respond(context.Background(), "user-1", "good morning")
	if err != nil {
		t.Fatalf("Failed to respond: %v", err)
	}

	text, finish := collectChunks(t, ch)
	if text != "Hello from your Future Self! You said: good morning" {
		t.Errorf("Expected the scripted greeting, got %q", text)
	}
	if finish != "stop" {
		t.Errorf("Expected finish reason stop, got %q", finish)
	}
}

func TestScriptedResponderStopsOnCancel(t *testing.T) {
	responder := &persona.ScriptedResponder{Delay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := responder.Respond(ctx, "user-1", "good morning")
	if err != nil {
		t.Fatalf("Failed to respond: %v", err)
	}
	cancel()

	text, finish := collectChunks(t, ch)
	if finish == "stop" {
		t.Error("Expected the stream to end before finishing")
	}
	if text == "Hello from your Future Self! You said: good morning" {
		t.Error("Expected a truncated reply after cancellation")
	}
}

func TestAIResponderStreamsAndRecords(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := atomic.AddInt32(&calls, 1)

		var req persona.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if !req.Stream {
			t.Error("Expected a streaming request")
		}
		if len(req.Messages) == 0 || req.Messages[0].Role != "system" {
			t.Error("Expected a system prompt first")
		}

		switch call {
		case 1:
			if len(req.Messages) != 2 {
				t.Errorf("Expected 2 messages on the first exchange, got %d", len(req.Messages))
			}
		case 2:
			if len(req.Messages) != 4 {
				t.Errorf("Expected 4 messages on the second exchange, got %d", len(req.Messages))
			}
			if req.Messages[1].Role != "user" || req.Messages[1].Content != "first message" {
				t.Errorf("Expected the first exchange in context, got %+v", req.Messages[1])
			}
			if req.Messages[2].Role != "assistant" || req.Messages[2].Content != "Keep going." {
				t.Errorf("Expected the recorded reply in context, got %+v", req.Messages[2])
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Keep \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"going.\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	store := persona.NewLRUStore(1 << 20)
	responder := persona.NewAIResponder(persona.NewAIClient(server.URL, "test-model"), store)

	ch, err := responder.Respond(context.Background(), "user-1", "first message")
	if err != nil {
		t.Fatalf("Failed to respond: %v", err)
	}
	text, finish := collectChunks(t, ch)
	if text != "Keep going." {
		t.Errorf("Expected the streamed reply, got %q", text)
	}
	if finish != "stop" {
		t.Errorf("Expected finish reason stop, got %q", finish)
	}

	conv, err := store.Get("user-1")
	if err != nil {
		t.Fatalf("Failed to read conversation: %v", err)
	}
	if conv == nil || len(conv.Messages) != 2 {
		t.Fatalf("Expected both sides of the exchange recorded, got %+v", conv)
	}

	ch, err = responder.Respond(context.Background(), "user-1", "second message")
	if err != nil {
		t.Fatalf("Failed to respond again: %v", err)
	}
	collectChunks(t, ch)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 calls to the API, got %d", got)
	}
}

func TestAIResponderSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model down", http.StatusInternalServerError)
	}))
	defer server.Close()

	responder := persona.NewAIResponder(persona.NewAIClient(server.URL, "test-model"), persona.NewLRUStore(1<<20))

	_, err := responder.Respond(context.Background(), "user-1", "hello")
	if err == nil {
		t.Fatal("Expected an error from the API")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected the status in the error, got %v", err)
	}
}
