package chat

import (
	"context"
	"encoding/json"
	"net/http"
)

// analyzeRequest is the request body for the scoring endpoints
type analyzeRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Analyzer calls the NLP scoring endpoints. The analysis shapes belong to
// the scoring service, so results are passed through as raw JSON for
// whoever renders them.
type Analyzer struct {
	client *Client
	auth   AuthContext
}

// NewAnalyzer creates an analyzer for the given user
func NewAnalyzer(client *Client, auth AuthContext) *Analyzer {
	return &Analyzer{client: client, auth: auth}
}

// Emotion scores a message against the emotion model
func (a *Analyzer) Emotion(ctx context.Context, message string) (json.RawMessage, error) {
	return a.analyze(ctx, "/nlp/emotion", message)
}

// Bias scores a message against the bias model
func (a *Analyzer) Bias(ctx context.Context, message string) (json.RawMessage, error) {
	return a.analyze(ctx, "/nlp/bias", message)
}

func (a *Analyzer) analyze(ctx context.Context, path, message string) (json.RawMessage, error) {
	var out json.RawMessage
	req := &analyzeRequest{Message: message, UserID: a.auth.UserID}
	if err := a.client.Send(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
