package chat

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// AssistantAuthorID is the author_id recorded for the future self's side of
// a conversation
const AssistantAuthorID = "future_self"

// messageRow is the wire shape of one persisted message
type messageRow struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteStore is a MessageStore backed by the backend's message endpoints
type RemoteStore struct {
	client *Client
}

var _ MessageStore = (*RemoteStore)(nil)

// NewRemoteStore creates a store that reads and writes history through
// client
func NewRemoteStore(client *Client) *RemoteStore {
	return &RemoteStore{client: client}
}

// Append writes one finalized message. The backend treats message_id as
// unique and ignores repeats.
func (s *RemoteStore) Append(ctx context.Context, msg Message, userID string) error {
	row := &messageRow{
		MessageID: msg.ID,
		UserID:    userID,
		Content:   msg.Text,
		AuthorID:  userID,
		CreatedAt: msg.CreatedAt.UTC(),
	}
	if msg.Author == AuthorAssistant {
		row.AuthorID = AssistantAuthorID
	}
	return s.client.Send(ctx, http.MethodPost, "/messages", row, nil)
}

// LoadRecent fetches up to limit messages older than before, ascending
func (s *RemoteStore) LoadRecent(ctx context.Context, userID string, limit int, before time.Time) ([]Message, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if !before.IsZero() {
		query.Set("before", before.UTC().Format(time.RFC3339Nano))
	}
	path := "/messages"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var rows []*messageRow
	if err := s.client.Send(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		author := AuthorUser
		if row.AuthorID == AssistantAuthorID {
			author = AuthorAssistant
		}
		msgs = append(msgs, Message{
			ID:        row.MessageID,
			Author:    author,
			Text:      row.Content,
			CreatedAt: row.CreatedAt,
			Status:    StatusComplete,
		})
	}
	return msgs, nil
}
