package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Defaults for Config
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxAttempts   = 3
	DefaultRetryInterval = time.Second
)

// maxErrorBody caps how much of an error response is carried into a
// RequestError
const maxErrorBody = 8 << 10

// Config configures a Client. Zero fields fall back to the defaults above.
type Config struct {
	BaseURL       string
	Auth          AuthContext
	Timeout       time.Duration // per-attempt bound
	MaxAttempts   int           // attempts per logical request
	RetryInterval time.Duration // backoff unit between attempts
}

// Client performs one logical network operation at a time against the
// backend: JSON request/response, multipart upload, or a streamed reply.
// Unary requests share a uniform timeout and retry policy; streams are
// opened with a single attempt and handed to the caller raw.
type Client struct {
	config Config
	unary  *http.Client
	stream *http.Client
}

// NewClient creates a transport client for the backend at cfg.BaseURL
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Client{
		config: cfg,
		unary:  &http.Client{Timeout: cfg.Timeout},
		// a reply stream stays open for the life of the reply, so only the
		// dial and response headers are bounded, not the whole body
		stream: &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout}},
	}
}

// Send performs a JSON request and decodes the response into out. A nil
// body sends no request body; a nil out discards the response. Transient
// failures (timeout, connection error, 5xx) are retried with linearly
// increasing backoff until the attempt cap; other statuses fail on the
// first attempt.
func (c *Client) Send(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = b
	}
	return c.doWithRetry(ctx, method, c.config.BaseURL+path, "application/json", payload, out)
}

// Upload is one binary part of a multipart request
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// SendMultipart uploads a binary payload as a multipart form, with the same
// retry policy as Send
func (c *Client) SendMultipart(ctx context.Context, path string, query url.Values, up Upload, out interface{}) error {
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, up.Field, up.Filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err = part.Write(up.Data); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}

	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doWithRetry(ctx, http.MethodPost, u, w.FormDataContentType(), buf.Bytes(), out)
}

// OpenStream opens a streaming request and hands back the raw response
// body. There is no retry here: a partially consumed stream cannot be
// resent without risking a duplicate reply server-side, so reconnection is
// the caller's decision. The caller owns closing the body.
func (c *Client) OpenStream(ctx context.Context, path string, body interface{}) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, &RequestError{Kind: classify(err), Attempts: 1, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &RequestError{Kind: ErrorKindStatus, Status: resp.StatusCode, Attempts: 1, Err: bodyError(msg)}
	}
	return resp.Body, nil
}

func (c *Client) doWithRetry(ctx context.Context, method, url, contentType string, body []byte, out interface{}) error {
	var last *RequestError
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			// linear backoff: 1x, 2x, ... the retry interval
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.config.RetryInterval):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", contentType)
		}
		c.authorize(req)

		resp, err := c.unary.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			last = &RequestError{Kind: classify(err), Attempts: attempt, Err: err}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			last = &RequestError{Kind: ErrorKindStatus, Status: resp.StatusCode, Attempts: attempt, Err: bodyError(msg)}
			if !last.Retryable() {
				return last
			}
			continue
		}

		if out == nil {
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
	return last
}

func (c *Client) authorize(req *http.Request) {
	if c.config.Auth.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Auth.AccessToken)
	}
}

// classify maps a transport error from the HTTP client to an ErrorKind
func classify(err error) ErrorKind {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrorKindTimeout
	}
	return ErrorKindConnection
}

// bodyError turns an error response body into the cause carried by a
// RequestError, or nil if the body was empty
func bodyError(body []byte) error {
	if s := strings.TrimSpace(string(body)); s != "" {
		return errors.New(s)
	}
	return nil
}
