package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spidervirus/FutureSelf/api"
	"github.com/spidervirus/FutureSelf/persona"
)

//streamFrame is one data: frame on a chat reply stream
type streamFrame struct {
	Text     string `json:"text,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
	Done     bool   `json:"done,omitempty"`
	Error    string `json:"error,omitempty"`
}

//StreamHandler streams future-self replies as server-sent events. Finalized
//messages are persisted by the client through the messages endpoint, so the
//handler itself never writes history.
type StreamHandler struct {
	responder persona.Responder
}

//NewStreamHandler returns a handler that answers with responder
func NewStreamHandler(responder persona.Responder) *StreamHandler {
	return &StreamHandler{responder: responder}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(api.UserKey).(*api.User)

	var req *StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		http.Error(w, "Could not decode json", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message empty", http.StatusBadRequest)
		return
	}
	if req.UserID != "" && req.UserID != user.ID {
		http.Error(w, "user id mismatch", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	chunks, err := h.responder.Respond(r.Context(), user.ID, req.Message)
	if err != nil {
		http.Error(w, "Could not start reply", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	writeFrame(w, flusher, &streamFrame{IsTyping: true})

	for chunk := range chunks {
		if chunk.Err != nil {
			writeFrame(w, flusher, &streamFrame{Error: chunk.Err.Error()})
			return
		}
		if chunk.Content == "" {
			continue
		}
		if err := writeFrame(w, flusher, &streamFrame{Text: chunk.Content}); err != nil {
			//client went away; the responder goroutine exits with the request context
			return
		}
	}

	writeFrame(w, flusher, &streamFrame{Done: true})
}

//writeFrame writes one data: frame and flushes it to the client
func writeFrame(w http.ResponseWriter, flusher http.Flusher, frame *streamFrame) error {
	buf, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w, "data: %s\n\n", buf); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

//statusWriter records the response code for the stream log line
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

//Flush passes flushes through to the wrapped writer so streaming keeps working
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//streamAuthMiddleware authenticates a streaming request, reading its user inside a
//short-lived transaction, and logs one line when the stream ends
func streamAuthMiddleware(next http.Handler, s SessionStore, db *sql.DB, secret string, writer io.Writer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		user, errResp := readRequestUser(r, s, db, secret)
		if errResp != nil {
			http.Error(sw, http.StatusText(errResp.Code), errResp.Code)
			writeLog(writer, r, nil, errResp.Code, errResp.Err)
			return
		}

		ctx := context.WithValue(r.Context(), api.UserKey, user)
		next.ServeHTTP(sw, r.WithContext(ctx))
		writeLog(writer, r, user, sw.code, nil)
	})
}

//readRequestUser authenticates the request and reads its user. The transaction only
//lives for the read, so a long stream does not hold one open.
func readRequestUser(r *http.Request, s SessionStore, db *sql.DB, secret string) (*api.User, *handlerResponse) {
	userID, errResp := authenticateRequest(r, s, secret)
	if errResp != nil {
		return nil, errResp
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, handleError(http.StatusInternalServerError, fmt.Errorf("Could not begin transaction: %v", err))
	}

	ctx := context.WithValue(r.Context(), api.TransactionKey, tx)
	user, err := api.ReadUser(ctx, userID)
	if err != nil {
		tx.Rollback()
		return nil, checkAPIError(err)
	}
	if err = tx.Commit(); err != nil {
		return nil, handleError(http.StatusInternalServerError, fmt.Errorf("Could not commit transaction: %v", err))
	}
	if user == nil {
		return nil, handleError(http.StatusUnauthorized, errors.New("Could not find user for session"))
	}

	return user, nil
}
