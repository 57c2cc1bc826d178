// Package httpapi is the JSON-over-HTTP client shared by the model
// provider adapters.
//
// Rate limiting (429, 529), server errors and transport failures are
// retried with exponential backoff. A Retry-After header on the response
// replaces the computed wait. Other non-success responses fail at once
// with a *StatusError.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Retry defaults.
const (
	DefaultMaxTries        = 3
	DefaultInitialInterval = 500 * time.Millisecond
	maxInterval            = 10 * time.Second
)

// statusOverloaded is returned by Anthropic when the API is overloaded.
const statusOverloaded = 529

// maxErrorBody bounds how much of an unparseable error body is quoted.
const maxErrorBody = 256

var log = logger.New("httpapi")

// Config configures a Client.
type Config struct {
	// Provider names the service in errors and logs ("openai").
	Provider string

	// BaseURL is prefixed to every request path.
	BaseURL string

	// Timeout bounds a single attempt. Zero means no limit beyond the context.
	Timeout time.Duration

	// Header is sent with every request. Empty values are skipped.
	Header map[string]string

	// Unavailable is wrapped into transport and server errors
	// (default domain.ErrLLMUnavailable).
	Unavailable error

	// MaxTries is the total number of attempts (default 3).
	MaxTries uint

	// InitialInterval is the first backoff wait (default 500ms).
	InitialInterval time.Duration
}

// Client sends JSON requests to one provider.
type Client struct {
	http *http.Client
	cfg  Config
}

// StatusError is a non-success response that is not retried.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Message)
}

// retryable marks an attempt error worth another try.
type retryable struct {
	err   error
	after time.Duration
}

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

// New creates a client.
func New(cfg Config) *Client {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = DefaultMaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.Unavailable == nil {
		cfg.Unavailable = domain.ErrLLMUnavailable
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// PostJSON sends in as a JSON body to path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.cfg.Provider, err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Get requests path and decodes the response into out when out is not nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var tries uint
	op := func() (struct{}, error) {
		tries++
		err := c.once(ctx, method, path, body, out)
		if err == nil {
			return struct{}{}, nil
		}
		var retry *retryable
		if !errors.As(err, &retry) {
			return struct{}{}, backoff.Permanent(err)
		}
		if retry.after > 0 && tries < c.cfg.MaxTries {
			return struct{}{}, backoff.RetryAfter(int(math.Ceil(retry.after.Seconds())))
		}
		return struct{}{}, retry.err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialInterval
	policy.MaxInterval = maxInterval

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.cfg.MaxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Debug("retrying request", "provider", c.cfg.Provider, "path", path, "wait", wait, "error", err)
		}),
	)
	return err
}

// once performs a single attempt.
func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.cfg.Provider, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.cfg.Header {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%s: %w: %w", c.cfg.Provider, c.cfg.Unavailable, err)
		if ctx.Err() != nil {
			return err
		}
		return &retryable{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryable{err: fmt.Errorf("%s: read response: %w", c.cfg.Provider, err)}
	}

	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests || code == statusOverloaded:
		return &retryable{
			err:   fmt.Errorf("%s (status %d): %w", c.cfg.Provider, code, domain.ErrRateLimited),
			after: retryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	case code >= http.StatusInternalServerError:
		return &retryable{
			err:   fmt.Errorf("%w: %w", c.cfg.Unavailable, c.statusError(code, data)),
			after: retryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	case code < 200 || code >= 300:
		return c.statusError(code, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.cfg.Provider, err)
	}
	return nil
}

func (c *Client) statusError(code int, body []byte) *StatusError {
	return &StatusError{Provider: c.cfg.Provider, Code: code, Message: errorMessage(body)}
}

// errorMessage extracts the message of the common error shapes:
// {"error": {"message": "..."}} and {"error": "..."}.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil && text != "" {
			return text
		}
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
