package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spidervirus/FutureSelf/api"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

//POST /messages
func handleCreateMessage(w http.ResponseWriter, r *http.Request) *handlerResponse {
	var message *api.Message
	d := json.NewDecoder(r.Body)

	err := d.Decode(&message)
	if err != nil || message == nil {
		return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode json: %v", err))
	}

	user := r.Context().Value(api.UserKey).(*api.User)

	if message.UserID != user.ID {
		return handleError(http.StatusBadRequest, fmt.Errorf("user id mismatch: Body: %s, Authenticated: %s", message.UserID, user.ID))
	}

	err = api.CreateMessage(r.Context(), message)
	if resp := checkAPIError(err); resp != nil {
		return resp
	}

	return &handlerResponse{Code: http.StatusOK, Body: message}
}

//GET /messages
func handleReadMessages(w http.ResponseWriter, r *http.Request) *handlerResponse {
	user := r.Context().Value(api.UserKey).(*api.User)

	limit := defaultHistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		l, err := strconv.Atoi(q)
		if err != nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode limit: %v", err))
		}
		if l < 1 {
			return handleError(http.StatusBadRequest, errors.New("limit must be positive"))
		}
		if l > maxHistoryLimit {
			l = maxHistoryLimit
		}
		limit = l
	}

	var before time.Time
	if q := r.URL.Query().Get("before"); q != "" {
		t, err := time.Parse(time.RFC3339Nano, q)
		if err != nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode before: %v", err))
		}
		before = t
	}

	messages, err := api.ReadMessages(r.Context(), user.ID, limit, before)
	if resp := checkAPIError(err); resp != nil {
		return resp
	}

	return &handlerResponse{Code: http.StatusOK, Body: messages}
}
