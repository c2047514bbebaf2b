package persona

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Responder produces the future-self reply to one user message as a stream
// of chunks
type Responder interface {
	Respond(ctx context.Context, userID, message string) (<-chan StreamChunk, error)
}

// ScriptedResponder streams a canned greeting that echoes the user's
// message. It keeps the chat flow working without an AI endpoint configured.
type ScriptedResponder struct {
	Delay time.Duration // pause between chunks; zero streams at full speed
}

// Respond streams the scripted reply word by word
func (r *ScriptedResponder) Respond(ctx context.Context, userID, message string) (<-chan StreamChunk, error) {
	reply := fmt.Sprintf("Hello from your Future Self! You said: %s", message)

	ch := make(chan StreamChunk, 100)
	go func() {
		defer close(ch)
		for _, word := range strings.SplitAfter(reply, " ") {
			if r.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(r.Delay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case ch <- StreamChunk{Content: word}:
			}
		}
		select {
		case <-ctx.Done():
		case ch <- StreamChunk{FinishReason: "stop"}:
		}
	}()
	return ch, nil
}

// AIResponder answers with an OpenAI-compatible model, carrying per-user
// conversation context between exchanges
type AIResponder struct {
	client *AIClient
	store  ConversationStore
}

// NewAIResponder creates a responder backed by the given client and
// conversation store
func NewAIResponder(client *AIClient, store ConversationStore) *AIResponder {
	return &AIResponder{client: client, store: store}
}

// Respond streams the model's reply and records both sides of the exchange
// once it finishes
func (r *AIResponder) Respond(ctx context.Context, userID, message string) (<-chan StreamChunk, error) {
	conv, err := r.store.Ensure(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	messages := make([]Message, 0, len(conv.Messages)+2)
	messages = append(messages, Message{Role: "system", Content: SystemPrompt()})
	messages = append(messages, conv.Messages...)
	messages = append(messages, Message{Role: "user", Content: message})

	chunks, err := r.client.ChatStream(ctx, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)

		var reply strings.Builder
		for chunk := range chunks {
			if chunk.Err == nil {
				reply.WriteString(chunk.Content)
			}
			select {
			case <-ctx.Done():
				return
			case out <- chunk:
			}
		}

		if err := r.store.AddMessages(userID, []Message{
			{Role: "user", Content: message},
			{Role: "assistant", Content: reply.String()},
		}); err != nil {
			log.Printf("persona: failed to record conversation for %s: %v", userID, err)
		}
	}()
	return out, nil
}

var (
	_ Responder = (*ScriptedResponder)(nil)
	_ Responder = (*AIResponder)(nil)
)
