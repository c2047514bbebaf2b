package chat

import (
	"time"

	"github.com/google/uuid"
)

// Author identifies who produced a message
type Author string

// Authors
const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
	AuthorSystem    Author = "system"
)

// Status is the lifecycle state of a message
type Status string

// Statuses
const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// Message is one unit of conversation. Text grows while the message is
// streaming and is frozen once the status reaches complete or failed.
type Message struct {
	ID        string
	Author    Author
	Text      string
	Failure   string // error text shown alongside any partial reply when Status is failed
	CreatedAt time.Time
	Status    Status
}

// NewMessage creates a message with a generated ID and the current time
func NewMessage(author Author, text string, status Status) Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now(),
		Status:    status,
	}
}

// AuthContext identifies the authenticated user requests are made for
type AuthContext struct {
	UserID      string
	AccessToken string
}
