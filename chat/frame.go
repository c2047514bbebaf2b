package chat

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"strings"
)

// FrameKind discriminates decoded stream frames
type FrameKind int

// Frame kinds
const (
	FrameTextDelta FrameKind = iota
	FrameTyping
	FrameDone
	FrameError
)

// Frame is one decoded unit of a streamed reply
type Frame struct {
	Kind   FrameKind
	Text   string // delta text to append, for FrameTextDelta
	Typing bool   // typing state, for FrameTyping
	Err    string // server-reported error, for FrameError
}

// framePayload matches the body of one "data: " line. Exactly one field is
// expected to be present; pointers distinguish absent from zero.
type framePayload struct {
	Text     *string `json:"text"`
	IsTyping *bool   `json:"isTyping"`
	Done     *bool   `json:"done"`
	Error    *string `json:"error"`
}

// DecodeFrames consumes a streamed reply body and produces frames in
// arrival order on the returned channel. Lines without the "data: " marker
// are ignored, and a marked line that fails to parse is dropped so a single
// bad frame cannot abort a healthy stream. The channel closes after a done
// or error frame; a stream that ends without either is completed with an
// implicit done so callers never block on an ambiguous close. The body is
// closed before the channel is.
func DecodeFrames(body io.ReadCloser) <-chan Frame {
	ch := make(chan Frame, 100)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			var payload framePayload
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				log.Printf("chat: dropping malformed frame: %v", err)
				continue
			}

			switch {
			case payload.Error != nil:
				ch <- Frame{Kind: FrameError, Err: *payload.Error}
				return
			case payload.Done != nil && *payload.Done:
				ch <- Frame{Kind: FrameDone}
				return
			case payload.Text != nil:
				ch <- Frame{Kind: FrameTextDelta, Text: *payload.Text}
			case payload.IsTyping != nil:
				ch <- Frame{Kind: FrameTyping, Typing: *payload.IsTyping}
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("chat: stream closed early: %v", err)
		}
		ch <- Frame{Kind: FrameDone}
	}()
	return ch
}
