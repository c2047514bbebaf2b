package httpapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spidervirus/FutureSelf/api"
	"github.com/spidervirus/FutureSelf/chat"
	"github.com/spidervirus/FutureSelf/httpapi"
	"github.com/spidervirus/FutureSelf/persona"
)

// withUser injects an authenticated user the way the stream middleware does
func withUser(h http.Handler, user *api.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), api.UserKey, user)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func postStream(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to post stream request: %v", err)
	}
	return resp
}

func collectFrames(t *testing.T, body io.ReadCloser) []chat.Frame {
	t.Helper()
	var frames []chat.Frame
	for frame := range chat.DecodeFrames(body) {
		frames = append(frames, frame)
	}
	return frames
}

func TestStreamHandlerFrames(t *testing.T) {
	user := &api.User{ID: "user-1", Email: "test@example.com", Name: "Test User"}
	server := httptest.NewServer(withUser(httpapi.NewStreamHandler(&persona.ScriptedResponder{}), user))
	defer server.Close()

	resp := postStream(t, server.URL, `{"message": "hi", "user_id": "user-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected content type text/event-stream, got: %s", ct)
	}

	frames := collectFrames(t, resp.Body)
	if len(frames) < 3 {
		t.Fatalf("Expected typing, deltas, and done, got %d frames", len(frames))
	}

	if frames[0].Kind != chat.FrameTyping || !frames[0].Typing {
		t.Errorf("Expected a typing frame first, got: %+v", frames[0])
	}

	var text strings.Builder
	for _, frame := range frames[1 : len(frames)-1] {
		if frame.Kind != chat.FrameTextDelta {
			t.Fatalf("Expected text deltas between typing and done, got: %+v", frame)
		}
		text.WriteString(frame.Text)
	}
	if want := "Hello from your Future Self! You said: hi"; text.String() != want {
		t.Errorf("Expected reply %q, got: %q", want, text.String())
	}

	if last := frames[len(frames)-1]; last.Kind != chat.FrameDone {
		t.Errorf("Expected a done frame last, got: %+v", last)
	}
}

// brokenResponder fails mid-reply after one delta
type brokenResponder struct{}

func (brokenResponder) Respond(ctx context.Context, userID, message string) (<-chan persona.StreamChunk, error) {
	ch := make(chan persona.StreamChunk, 2)
	ch <- persona.StreamChunk{Content: "partial"}
	ch <- persona.StreamChunk{Err: errors.New("model unavailable")}
	close(ch)
	return ch, nil
}

func TestStreamHandlerError(t *testing.T) {
	user := &api.User{ID: "user-1", Email: "test@example.com", Name: "Test User"}
	server := httptest.NewServer(withUser(httpapi.NewStreamHandler(brokenResponder{}), user))
	defer server.Close()

	resp := postStream(t, server.URL, `{"message": "hi", "user_id": "user-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", resp.StatusCode)
	}

	frames := collectFrames(t, resp.Body)
	if len(frames) < 2 {
		t.Fatalf("Expected at least 2 frames, got: %d", len(frames))
	}

	last := frames[len(frames)-1]
	if last.Kind != chat.FrameError {
		t.Fatalf("Expected an error frame last, got: %+v", last)
	}
	if last.Err != "model unavailable" {
		t.Errorf("Expected error %q, got: %q", "model unavailable", last.Err)
	}

	for _, frame := range frames[:len(frames)-1] {
		if frame.Kind == chat.FrameDone {
			t.Error("Expected no done frame on a failed stream")
		}
	}
}

func TestStreamHandlerRejects(t *testing.T) {
	user := &api.User{ID: "user-1", Email: "test@example.com", Name: "Test User"}
	server := httptest.NewServer(withUser(httpapi.NewStreamHandler(&persona.ScriptedResponder{}), user))
	defer server.Close()

	cases := []struct {
		name string
		body string
	}{
		{"empty message", `{"message": "", "user_id": "user-1"}`},
		{"user mismatch", `{"message": "hi", "user_id": "user-2"}`},
		{"bad json", `{`},
	}

	for _, c := range cases {
		resp := postStream(t, server.URL, c.body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: Expected status 400, got: %d", c.name, resp.StatusCode)
		}
	}
}

func TestRouterStreamUnauthorized(t *testing.T) {
	s := httpapi.NewMemorySessionStore(time.Hour)
	router := httpapi.NewRouter(io.Discard, s, nil, &httpapi.RouterConfig{JWTSecret: "secret"})
	server := httptest.NewServer(router)
	defer server.Close()

	url := server.URL + "/api/1.0/chat/stream"

	resp := postStream(t, url, `{"message": "hi"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without credentials, got: %d", resp.StatusCode)
	}

	badToken, err := httpapi.NewAccessToken("user-1", "other-secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	for _, token := range []string{"bogus", badToken} {
		req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(`{"message": "hi"}`))
		if err != nil {
			t.Fatalf("Failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected status 401 for an invalid token, got: %d", resp.StatusCode)
		}
	}
}
