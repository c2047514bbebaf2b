package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spidervirus/FutureSelf/api"
	"github.com/spidervirus/FutureSelf/speech"
)

var testUser = &api.User{ID: "user-1", Email: "test@example.com", Name: "Test User"}

// withTestUser puts the authenticated user on the request context the way
// the auth middleware does
func withTestUser(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), api.UserKey, testUser))
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	if _, err = part.Write(data); err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleTranscribe(t *testing.T) {
	handler := handleTranscribe(&speech.StaticTranscriber{Text: "hello there"})

	body, contentType := multipartBody(t, "file", "clip.wav", speech.Silence(speech.DefaultFormat, time.Second))
	r := httptest.NewRequest(http.MethodPost, "/transcribe?user_id=user-1", body)
	r.Header.Set("Content-Type", contentType)

	resp := handler(httptest.NewRecorder(), withTestUser(r))
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d (%v)", resp.Code, resp.Err)
	}

	out, ok := resp.Body.(*TranscribeResponse)
	if !ok {
		t.Fatalf("Expected a TranscribeResponse, got: %T", resp.Body)
	}
	if out.TranscribedText != "hello there" {
		t.Errorf("Expected transcript %q, got: %q", "hello there", out.TranscribedText)
	}
	if out.UserID != "user-1" {
		t.Errorf("Expected user id user-1, got: %s", out.UserID)
	}
}

func TestHandleTranscribeRejects(t *testing.T) {
	handler := handleTranscribe(&speech.StaticTranscriber{Text: "hello"})
	clip := speech.Silence(speech.DefaultFormat, time.Second)

	cases := []struct {
		name   string
		field  string
		target string
		data   []byte
	}{
		{"not wav", "file", "/transcribe", []byte("not audio")},
		{"missing file field", "audio", "/transcribe", clip},
		{"user mismatch", "file", "/transcribe?user_id=user-2", clip},
	}

	for _, c := range cases {
		body, contentType := multipartBody(t, c.field, "clip.wav", c.data)
		r := httptest.NewRequest(http.MethodPost, c.target, body)
		r.Header.Set("Content-Type", contentType)

		if resp := handler(httptest.NewRecorder(), withTestUser(r)); resp.Code != http.StatusBadRequest {
			t.Errorf("%s: Expected status 400, got: %d", c.name, resp.Code)
		}
	}
}

func TestHandleSynthesize(t *testing.T) {
	handler := handleSynthesize(speech.SilenceSynthesizer{})

	r := httptest.NewRequest(http.MethodPost, "/synthesize", strings.NewReader(`{"text": "hello world", "user_id": "user-1"}`))
	r.Header.Set("Content-Type", "application/json")

	resp := handler(httptest.NewRecorder(), withTestUser(r))
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d (%v)", resp.Code, resp.Err)
	}

	out, ok := resp.Body.(*SynthesizeResponse)
	if !ok {
		t.Fatalf("Expected a SynthesizeResponse, got: %T", resp.Body)
	}
	if out.UserID != "user-1" {
		t.Errorf("Expected user id user-1, got: %s", out.UserID)
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		t.Fatalf("Failed to decode audio content: %v", err)
	}
	clip, err := speech.ParseWAV(audio)
	if err != nil {
		t.Fatalf("Failed to parse synthesized audio: %v", err)
	}
	if clip.Duration() <= 0 {
		t.Error("Expected a non-empty clip")
	}
}

func TestHandleSynthesizeRejectsEmpty(t *testing.T) {
	handler := handleSynthesize(speech.SilenceSynthesizer{})

	r := httptest.NewRequest(http.MethodPost, "/synthesize", strings.NewReader(`{"text": "", "user_id": "user-1"}`))
	r.Header.Set("Content-Type", "application/json")

	if resp := handler(httptest.NewRecorder(), withTestUser(r)); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty text, got: %d", resp.Code)
	}
}

func TestHandleReadMessagesParams(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"bad limit", "/messages?limit=x"},
		{"zero limit", "/messages?limit=0"},
		{"bad before", "/messages?before=yesterday"},
	}

	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, c.target, nil)
		if resp := handleReadMessages(httptest.NewRecorder(), withTestUser(r)); resp.Code != http.StatusBadRequest {
			t.Errorf("%s: Expected status 400, got: %d", c.name, resp.Code)
		}
	}
}

func TestHandleCreateMessageOwner(t *testing.T) {
	row := `{"message_id": "0f823c1a-3c39-44a1-9e65-6ad2dc49ca1d", "user_id": "user-2", "content": "hi", "author_id": "user-2"}`
	r := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(row))
	r.Header.Set("Content-Type", "application/json")

	if resp := handleCreateMessage(httptest.NewRecorder(), withTestUser(r)); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for another user's message, got: %d", resp.Code)
	}
}

func TestHandleAnalyzeRejectsEmpty(t *testing.T) {
	cases := []struct {
		name    string
		handler returnHandler
	}{
		{"emotion", handleAnalyzeEmotion},
		{"bias", handleAnalyzeBias},
	}

	for _, c := range cases {
		r := httptest.NewRequest(http.MethodPost, "/nlp/"+c.name, strings.NewReader(`{"message": "", "user_id": "user-1"}`))
		r.Header.Set("Content-Type", "application/json")

		if resp := c.handler(httptest.NewRecorder(), withTestUser(r)); resp.Code != http.StatusBadRequest {
			t.Errorf("%s: Expected status 400 for an empty message, got: %d", c.name, resp.Code)
		}
	}
}

func TestTrendDaysParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/analytics/emotion", nil)
	days, errResp := trendDays(r)
	if errResp != nil {
		t.Fatalf("Expected no error, got: %v", errResp.Err)
	}
	if days != defaultTrendDays {
		t.Errorf("Expected %d days, got: %d", defaultTrendDays, days)
	}

	r = httptest.NewRequest(http.MethodGet, "/analytics/emotion?days=7", nil)
	days, errResp = trendDays(r)
	if errResp != nil {
		t.Fatalf("Expected no error, got: %v", errResp.Err)
	}
	if days != 7 {
		t.Errorf("Expected 7 days, got: %d", days)
	}

	r = httptest.NewRequest(http.MethodGet, "/analytics/emotion?days=week", nil)
	if _, errResp = trendDays(r); errResp == nil || errResp.Code != http.StatusBadRequest {
		t.Error("Expected status 400 for a bad days parameter")
	}
}
