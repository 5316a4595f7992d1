package nvoip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBodyLimit = 64 * 1024
	userAgent        = "nvoip-dispatcher/1.0"
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used to talk to the provider.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL sets the provider base URL. Useful for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithTokenSource overrides the bearer token source.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

// WithBodyLimit adjusts how many bytes of an error response are kept on
// APIError. Successful bodies are always read in full.
func WithBodyLimit(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBodyBytes = limit
		}
	}
}

// Client performs authenticated calls against the Nvoip REST API.
type Client struct {
	logger       zerolog.Logger
	baseURL      string
	httpClient   HTTPClient
	tokens       oauth2.TokenSource
	maxBodyBytes int64
}

// New constructs a client from the provider configuration. The token source is
// derived from cfg unless WithTokenSource is supplied.
func New(ctx context.Context, cfg config.ProviderConfig, timeout time.Duration, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		logger:       logger,
		baseURL:      strings.TrimRight(cfg.Nvoip.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		maxBodyBytes: cfg.BodyLimitBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.baseURL == "" {
		c.baseURL = config.DefaultNvoipBaseURL
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = defaultBodyLimit
	}
	if c.tokens == nil {
		ts, err := NewTokenSource(ctx, cfg.Nvoip)
		if err != nil {
			return nil, err
		}
		c.tokens = ts
	}

	return c, nil
}

// Invoke sends one request and returns the raw response body on a 2xx status.
// Any other status yields an *APIError; transport failures are wrapped.
func (c *Client) Invoke(ctx context.Context, method, path string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("nvoip: build request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("nvoip: obtain token: %w", err)
	}
	token.SetAuthHeader(req)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("nvoip: %s %s: %w", method, path, ctxErr)
		}
		return nil, fmt.Errorf("nvoip: http do: %w", err)
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	data, err := c.readBody(resp.Body, success)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(started)).
		Msg("nvoip call completed")

	if success {
		return data, nil
	}
	return nil, newAPIError(resp.StatusCode, data)
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) readBody(rc io.ReadCloser, full bool) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	var r io.Reader = rc
	if !full {
		r = io.LimitReader(rc, c.maxBodyBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("nvoip: read body: %w", err)
	}
	return data, nil
}

// APIError is returned for non-2xx responses. Body is kept verbatim. Message is
// taken from a top-level message, error or detail string when the body is a
// JSON object, otherwise it is the trimmed body text.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nvoip: http %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	message := errorMessage(body)
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: message, Body: body}
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func errorMessage(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if v, ok := fields[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return strings.TrimSpace(string(body))
}
