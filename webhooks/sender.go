package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 5000 * time.Millisecond
	maxResponseSize = 500
	truncationMark  = "... [truncated]"
)

// Outcome is the terminal result of one delivery attempt. HTTPStatus uses two
// synthetic values: 408 when the time budget expired and 0 when the request
// never produced an HTTP response.
type Outcome struct {
	HTTPStatus   int
	ResponseBody string
	Succeeded    bool
}

// Sender performs one bounded HTTP POST. The timeout cancels the in-flight
// request rather than abandoning it.
type Sender struct {
	client  *http.Client
	timeout time.Duration
}

type SenderOption func(*Sender)

func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) SenderOption {
	return func(s *Sender) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func NewSender(options ...SenderOption) *Sender {
	sender := &Sender{
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(sender)
	}
	return sender
}

// Send posts body to endpointURL and classifies the result as exactly one of:
// success, remote rejection, timeout, or transport error. It never returns an
// error; every path maps to an Outcome so the dispatcher always has one row
// to write.
func (s *Sender) Send(ctx context.Context, endpointURL, bearerToken string, body []byte) Outcome {
	if s == nil {
		return Outcome{HTTPStatus: 0, ResponseBody: "sender not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{HTTPStatus: 0, ResponseBody: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(bearerToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{
				HTTPStatus:   http.StatusRequestTimeout,
				ResponseBody: fmt.Sprintf("delivery timed out after %dms", s.timeout.Milliseconds()),
			}
		}
		return Outcome{HTTPStatus: 0, ResponseBody: err.Error()}
	}
	defer resp.Body.Close()

	return Outcome{
		HTTPStatus:   resp.StatusCode,
		ResponseBody: captureBody(resp.Body),
		Succeeded:    resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
}

func captureBody(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxResponseSize+1))
	if err != nil {
		return fmt.Sprintf("response read failed: %v", err)
	}
	if len(raw) > maxResponseSize {
		return string(raw[:maxResponseSize]) + truncationMark
	}
	return string(raw)
}
