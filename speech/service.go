package speech

import (
	"context"
	"strings"
	"time"
)

// Transcriber converts a captured audio clip to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders text as an audio clip
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// StaticTranscriber validates the clip and returns a fixed transcript. It
// stands in for a speech-to-text model in development deployments.
type StaticTranscriber struct {
	Text string
}

// Transcribe returns the configured transcript for any decodable clip
func (t *StaticTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if _, err := ParseWAV(audio); err != nil {
		return "", err
	}
	return t.Text, nil
}

const (
	wordDuration = 300 * time.Millisecond
	minClip      = 500 * time.Millisecond
	maxClip      = 10 * time.Second
)

// SilenceSynthesizer renders silent audio sized to the text's word count. It
// stands in for a text-to-speech model in development deployments.
type SilenceSynthesizer struct{}

// Synthesize returns a silent clip lasting longer for longer text
func (SilenceSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	d := time.Duration(len(strings.Fields(text))) * wordDuration
	if d < minClip {
		d = minClip
	}
	if d > maxClip {
		d = maxClip
	}
	return Silence(DefaultFormat, d), nil
}

var (
	_ Transcriber = (*StaticTranscriber)(nil)
	_ Synthesizer = SilenceSynthesizer{}
)
