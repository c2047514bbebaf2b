package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// VoicePlaceholderText is shown in place of a voice message until its
// transcription arrives
const VoicePlaceholderText = "Processing voice message..."

// Recorder captures audio for the voice path. Implementations buffer raw
// frames in memory between Start and Stop.
type Recorder interface {
	// Start begins capturing. It returns ErrPermissionDenied when no
	// input device is available.
	Start() error
	// Stop ends capturing and returns the accumulated audio bytes
	Stop() ([]byte, error)
}

// MemoryRecorder is a Recorder backed by an in-memory buffer. Audio bytes
// are fed to it directly, standing in for a microphone callback.
type MemoryRecorder struct {
	mu        sync.Mutex
	capturing bool
	denied    bool
	buf       bytes.Buffer
}

var _ Recorder = (*MemoryRecorder)(nil)

// NewMemoryRecorder creates an idle MemoryRecorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Deny makes subsequent Start calls fail with ErrPermissionDenied,
// simulating a revoked microphone permission
func (r *MemoryRecorder) Deny() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied = true
}

// Start begins buffering fed audio
func (r *MemoryRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.denied {
		return ErrPermissionDenied
	}
	r.capturing = true
	r.buf.Reset()
	return nil
}

// Feed appends audio bytes to the capture buffer. Bytes fed while not
// capturing are dropped.
func (r *MemoryRecorder) Feed(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.capturing {
		return
	}
	r.buf.Write(p)
}

// Stop ends the capture and returns the buffered audio
func (r *MemoryRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capturing = false
	audio := make([]byte, r.buf.Len())
	copy(audio, r.buf.Bytes())
	r.buf.Reset()
	return audio, nil
}

// transcribeResponse is the transcription endpoint's reply
type transcribeResponse struct {
	TranscribedText string `json:"transcribed_text"`
	UserID          string `json:"user_id"`
}

// synthesizeRequest asks the backend to speak text
type synthesizeRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

// synthesizeResponse carries the spoken audio, base64-encoded
type synthesizeResponse struct {
	AudioContent string `json:"audio_content"`
	UserID       string `json:"user_id"`
}

// VoicePipeline turns recorded audio into a user submission on a session.
// At most one transcription may be outstanding at a time.
type VoicePipeline struct {
	client   *Client
	session  *Session
	recorder Recorder

	mu      sync.Mutex
	pending bool
}

// NewVoicePipeline wires a recorder to a session through the transport
// client
func NewVoicePipeline(client *Client, session *Session, recorder Recorder) *VoicePipeline {
	return &VoicePipeline{
		client:   client,
		session:  session,
		recorder: recorder,
	}
}

// StartCapture begins buffering microphone audio. It fails with
// ErrTranscribing while a previous capture's transcription is outstanding.
func (p *VoicePipeline) StartCapture() error {
	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return ErrTranscribing
	}
	p.mu.Unlock()
	return p.recorder.Start()
}

// StopCapture ends the capture and hands the audio off for transcription.
// An empty capture is dropped without submitting anything, returning a zero
// Message. Otherwise a processing placeholder appears in the conversation
// immediately and is replaced in place, under the same id, once
// transcription finishes: on success it becomes the user's message and a
// streamed exchange starts for it, on failure it is marked failed with the
// error visible.
func (p *VoicePipeline) StopCapture(ctx context.Context) (Message, error) {
	audio, err := p.recorder.Stop()
	if err != nil {
		return Message{}, err
	}
	if len(audio) == 0 {
		return Message{}, nil
	}

	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return Message{}, ErrTranscribing
	}
	p.pending = true
	p.mu.Unlock()

	placeholder, err := p.session.addPending(AuthorUser, VoicePlaceholderText)
	if err != nil {
		p.setPending(false)
		return Message{}, err
	}

	go p.transcribe(ctx, placeholder.ID, audio)
	return placeholder, nil
}

func (p *VoicePipeline) transcribe(ctx context.Context, id string, audio []byte) {
	query := url.Values{"user_id": []string{p.session.auth.UserID}}
	var out transcribeResponse
	err := p.client.SendMultipart(ctx, "/transcribe", query, Upload{
		Field:       "file",
		Filename:    "recording.wav",
		ContentType: "audio/wav",
		Data:        audio,
	}, &out)

	// settled once the response is in; clear before any session events fire
	p.setPending(false)

	if err != nil {
		p.session.markFailed(id, err.Error())
		return
	}

	if err := p.session.resolvePending(ctx, id, out.TranscribedText); err != nil {
		p.session.markFailed(id, err.Error())
	}
}

func (p *VoicePipeline) setPending(v bool) {
	p.mu.Lock()
	p.pending = v
	p.mu.Unlock()
}

// Synthesize asks the backend to speak text and returns the decoded audio
func (p *VoicePipeline) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var out synthesizeResponse
	req := &synthesizeRequest{Text: text, UserID: p.session.auth.UserID}
	if err := p.client.Send(ctx, http.MethodPost, "/synthesize", req, &out); err != nil {
		return nil, err
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	return audio, nil
}
