package api

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

//Message represents a stored chat message. AuthorID is the authoring User's
//id for user messages and the fixed value "future_self" for assistant
//messages.
type Message struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

//Validate validates the given Message
func (m *Message) Validate() error {
	if err := ValidateString("message_id", m.MessageID, 36); err != nil {
		return err
	}
	if err := ValidateString("user_id", m.UserID, 36); err != nil {
		return err
	}
	if err := ValidateString("author_id", m.AuthorID, 36); err != nil {
		return err
	}
	return ValidateString("content", m.Content, 65535)
}

//CreateMessage stores the given Message (CreatedAt is set to now if zero).
//Creating a Message whose message_id already exists is a no-op, not an error.
func CreateMessage(ctx context.Context, message *Message) error {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	if err := message.Validate(); err != nil {
		return &Error{Description: "Could not validate Message", Type: ErrorTypeUser, Err: err}
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := tx.Exec("INSERT INTO message(message_id, user_id, content, author_id, created_at) VALUES(?, ?, ?, ?, ?);",
		message.MessageID,
		message.UserID,
		message.Content,
		message.AuthorID,
		message.CreatedAt.UTC(),
	)
	if err != nil {
		if e, ok := err.(*mysql.MySQLError); ok && e.Number == 1062 {
			return nil
		}
		return &Error{Description: "Could not insert Message", Type: ErrorTypeServer, Err: err}
	}

	return nil
}

//ReadMessages returns up to limit Messages for the given user in ascending
//chronological order. If before is not zero, only Messages created before it
//are returned.
func ReadMessages(ctx context.Context, userID string, limit int, before time.Time) ([]*Message, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	var rows *sql.Rows
	var err error

	//newest page first, reversed below
	if before.IsZero() {
		rows, err = tx.Query("SELECT message_id, user_id, content, author_id, created_at FROM message WHERE user_id=? ORDER BY created_at DESC LIMIT ?;", userID, limit)
	} else {
		rows, err = tx.Query("SELECT message_id, user_id, content, author_id, created_at FROM message WHERE user_id=? AND created_at<? ORDER BY created_at DESC LIMIT ?;", userID, before, limit)
	}
	if err != nil {
		return nil, &Error{Description: fmt.Sprintf("Could not query Messages for User(%s)", userID), Type: ErrorTypeServer, Err: err}
	}
	defer rows.Close()

	var messages []*Message

	for rows.Next() {
		m := new(Message)

		if err := rows.Scan(&(m.MessageID), &(m.UserID), &(m.Content), &(m.AuthorID), &(m.CreatedAt)); err != nil {
			return nil, &Error{Description: fmt.Sprintf("Could not scan Message row for User(%s)", userID), Type: ErrorTypeServer, Err: err}
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, &Error{Description: fmt.Sprintf("Could not scan Message rows for User(%s)", userID), Type: ErrorTypeServer, Err: err}
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
