// Package apiclient is the single HTTP path to the library server. It adds
// the base address, the stored token and request metadata to every call and
// turns a 403 into ErrSessionExpired after clearing the token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the raw token sent in the Authorization header and is
// told when the server rejects it.
type TokenSource interface {
	Token() string
	Expire(ctx context.Context)
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Language string
	Metrics  *Metrics
	Logger   *slog.Logger
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	metrics *Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	tokens    TokenSource
	language  string
	onExpired func()
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     hc,
		metrics:  opts.Metrics,
		logger:   logger,
		language: opts.Language,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnExpired registers the hook run after a 403 cleared the session.
func (c *Client) OnExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

// SetLanguage changes the Accept-Language sent from now on. Reports are
// rendered server-side in this language.
func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = lang
}

func (c *Client) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out, true)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out, true)
}

func (c *Client) PutJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, out, true)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, out, true)
}

// PostJSONAnonymous posts without a token. A 403 is returned as a plain
// APIError and leaves the session alone; login uses it.
func (c *Client) PostJSONAnonymous(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out, false)
}

// Download fetches a binary payload such as a report and returns it with
// the response content type. body may be nil.
func (c *Client) Download(ctx context.Context, method, path string, query url.Values, body any) ([]byte, string, error) {
	resp, err := c.do(ctx, method, path, query, body, true)
	if err != nil {
		return nil, "", err
	}
	defer closeWithLog(c.logger, resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any, auth bool) error {
	resp, err := c.do(ctx, method, path, query, body, auth)
	if err != nil {
		return err
	}
	defer closeWithLog(c.logger, resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// do sends the request and returns the response only for 2xx statuses.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, auth bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	tokens, lang := c.tokens, c.language
	c.mu.RUnlock()
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	if auth && tokens != nil {
		if tok := tokens.Token(); tok != "" {
			req.Header.Set("Authorization", tok)
		}
	}

	endpoint := endpointLabel(method, path)
	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(endpoint, 0, elapsed)
		c.logger.Warn("library api request failed",
			"request_id", reqID, "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.metrics.observe(endpoint, resp.StatusCode, elapsed)
	c.logger.Debug("library api request",
		"request_id", reqID, "endpoint", endpoint,
		"status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	closeWithLog(c.logger, resp.Body)

	if resp.StatusCode == http.StatusForbidden && auth {
		c.expire(ctx)
		return nil, ErrSessionExpired
	}
	return nil, newAPIError(resp.StatusCode, errBody)
}

func (c *Client) expire(ctx context.Context) {
	c.mu.RLock()
	tokens, hook := c.tokens, c.onExpired
	c.mu.RUnlock()

	c.logger.Info("library api rejected token, clearing session")
	if tokens != nil {
		tokens.Expire(ctx)
	}
	if hook != nil {
		hook()
	}
}

func closeWithLog(logger *slog.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("failed to close response body", "error", err)
	}
}
