package force

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/sfrecord/pkg/logging"
	"github.com/getmockd/sfrecord/pkg/session"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "sfrecord/1"

// Client executes queries and persists records against the REST API.
// It holds no per-record state and is safe for concurrent use.
type Client struct {
	source      session.Source
	httpClient  *http.Client
	logger      *slog.Logger
	userAgent   string
	nativePatch bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP timeout. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
}

// WithLogger sets the logger. Requests are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithNativePatch sends updates as PATCH instead of POST with the
// _HttpMethod=PATCH override.
func WithNativePatch() Option {
	return func(c *Client) {
		c.nativePatch = true
	}
}

// New creates a client that reads its session from source on every call.
func New(source session.Source, opts ...Option) *Client {
	c := &Client{
		source:     source,
		httpClient: &http.Client{},
		logger:     logging.Nop(),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status <= 299
}

// session resolves the current session. It is never cached.
func (c *Client) session(ctx context.Context) (session.Session, error) {
	if c.source == nil {
		return session.Session{}, session.ErrNoSession
	}
	return c.source.Session(ctx)
}

// do issues a request against an absolute URL and reads the whole body.
// payload, when non-nil, is sent as JSON.
func (c *Client) do(ctx context.Context, sess session.Session, method, url string, payload any) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+sess.AccessToken)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil || method == http.MethodDelete {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", req.URL.Path, "error", err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return &response{status: resp.StatusCode, body: data}, nil
}
