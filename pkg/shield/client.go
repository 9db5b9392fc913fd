// Package shield is a client for the remote policy service that can
// intercept delegation tool calls, plus a batching sink for tool metrics.
package shield

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the policy service sidecar address.
	DefaultBaseURL = "http://localhost:8787"

	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 8 * time.Second
	DefaultJitter     = 250 * time.Millisecond

	maxBodyBytes = 1 << 20
)

// Response is the remote verdict for one action.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Denied  bool            `json:"denied,omitempty"`
}

type actionRequest struct {
	Payload  any            `json:"payload"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Client calls the policy service with bounded exponential backoff.
// Use NewClient for the defaults; a zero Client never retries.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// Timeout bounds each attempt, not the whole call.
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration
}

// NewClient returns a client with the default retry policy. An empty
// baseURL means DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{},
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Jitter:     DefaultJitter,
	}
}

// Call posts payload to the named action. A 403 carrying denied:true is a
// verdict, not a failure: it comes back as a Response with Denied set.
// Every other failure is an *Error.
func (c *Client) Call(ctx context.Context, action string, payload any, metadata map[string]any) (*Response, error) {
	body, err := json.Marshal(actionRequest{Payload: payload, Metadata: metadata})
	if err != nil {
		return nil, fmt.Errorf("shield: encode payload: %w", err)
	}
	endpoint := c.BaseURL + "/v1/actions/" + url.PathEscape(action)
	reqID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		status, raw, err := c.post(ctx, endpoint, body, reqID)

		switch {
		case err == nil && status >= 200 && status < 300:
			var resp Response
			if err := json.Unmarshal(raw, &resp); err != nil {
				return nil, &Error{Status: status, Message: "malformed response", Attempts: attempt + 1, Err: err}
			}
			return &resp, nil
		case err == nil && status == http.StatusForbidden:
			var resp Response
			if json.Unmarshal(raw, &resp) == nil && resp.Denied {
				return &resp, nil
			}
		}

		failure := &Error{Status: status, Message: errorMessage(status, raw, err), Attempts: attempt + 1, Err: err}
		if ctx.Err() != nil || !retryable(status) || attempt >= c.MaxRetries {
			return nil, failure
		}

		if err := sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, failure
		}
	}
}

// post makes one attempt. A zero status means the request never got a
// response.
func (c *Client) post(ctx context.Context, endpoint string, body []byte, reqID string) (int, []byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

// backoff is min(BaseDelay*2^attempt, MaxDelay) plus up to Jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.BaseDelay << attempt
	if c.MaxDelay > 0 && (d > c.MaxDelay || d < c.BaseDelay) {
		d = c.MaxDelay
	}
	if c.Jitter > 0 {
		d += rand.N(c.Jitter + 1)
	}
	return d
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func errorMessage(status int, raw []byte, err error) string {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout"
		}
		return err.Error()
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(status)
}
