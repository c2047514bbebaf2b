package chat

import (
	"errors"
	"fmt"
)

// ErrBusy is returned by Submit while a previous exchange is still streaming
var ErrBusy = errors.New("chat: exchange already in flight")

// ErrClosed is returned from operations on a closed session
var ErrClosed = errors.New("chat: session closed")

// ErrPermissionDenied is returned by StartCapture when no audio input device
// is available to the recorder
var ErrPermissionDenied = errors.New("chat: audio capture permission denied")

// ErrTranscribing is returned when a capture is started or stopped while a
// previous capture's transcription is still outstanding
var ErrTranscribing = errors.New("chat: transcription already in flight")

// ErrorKind classifies a transport failure
type ErrorKind int

// Error kinds
const (
	ErrorKindTimeout ErrorKind = iota
	ErrorKindConnection
	ErrorKindStatus
)

// RequestError is the terminal failure of one logical request. It carries
// the classification of the last attempt, the HTTP status when the server
// answered, and how many attempts were spent.
type RequestError struct {
	Kind     ErrorKind
	Status   int // HTTP status code when Kind is ErrorKindStatus
	Attempts int
	Err      error // underlying cause of the last attempt, may be nil for bare statuses
}

// Error returns a description of the failure
func (e *RequestError) Error() string {
	switch e.Kind {
	case ErrorKindTimeout:
		return fmt.Sprintf("request timed out after %d attempt(s): %v", e.Attempts, e.Err)
	case ErrorKindConnection:
		return fmt.Sprintf("connection failed after %d attempt(s): %v", e.Attempts, e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("server returned status %d: %v", e.Status, e.Err)
		}
		return fmt.Sprintf("server returned status %d", e.Status)
	}
}

// Unwrap returns the underlying cause of the last attempt
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is transient. Timeouts,
// connection errors, and 5xx responses may succeed on another attempt;
// every other status is treated as a permanent client error.
func (e *RequestError) Retryable() bool {
	if e.Kind == ErrorKindStatus {
		return e.Status >= 500
	}
	return true
}
