// Package api is a thin HTTP client for API-level test steps, with
// assertion helpers that report mismatches as ordinary errors.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client issues requests against the configured API base URL.
type Client struct {
	base    string
	http    *http.Client
	logger  *zap.Logger
	headers map[string]string
}

// NewClient builds a client from config. api.base takes precedence over
// base.url so browser and API tests can target different hosts.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	base := cfg.API.Base.URL
	if base == "" {
		base = cfg.Base.URL
	}
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("api"),
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent with every subsequent request, e.g. an auth
// token obtained during setup.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Response captures everything an assertion step needs after the body has
// been consumed.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
}

// Get issues a GET request to path, relative to the base URL.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with payload JSON-encoded as the body.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

// Put issues a PUT with payload JSON-encoded as the body.
func (c *Client) Put(ctx context.Context, path string, payload interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, payload)
}

// Delete issues a DELETE request to path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*Response, error) {
	url := c.base + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	elapsed := time.Since(start)
	c.logger.Debug("API call completed",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed))

	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     raw,
		Duration: elapsed,
	}, nil
}

// ExpectStatus asserts the response status code.
func (r *Response) ExpectStatus(want int) error {
	if r.Status != want {
		return fmt.Errorf("expected status %d, got %d (body: %s)",
			want, r.Status, truncate(r.Body, 200))
	}
	return nil
}

// ExpectBodyContains asserts the raw body contains the substring.
func (r *Response) ExpectBodyContains(substr string) error {
	if !bytes.Contains(r.Body, []byte(substr)) {
		return fmt.Errorf("response body does not contain %q (body: %s)",
			substr, truncate(r.Body, 200))
	}
	return nil
}

// ExpectJSONField asserts the value at a dotted path, e.g. "user.id" or
// "items.0.name". Numeric segments index into arrays. The value is compared
// by its string rendering.
func (r *Response) ExpectJSONField(path, want string) error {
	value := json.Get(r.Body, splitPath(path)...)
	if value.LastError() != nil {
		return fmt.Errorf("field %q not found in response: %w", path, value.LastError())
	}
	got := value.ToString()
	if got != want {
		return fmt.Errorf("field %q is %q, expected %q", path, got, want)
	}
	return nil
}

func splitPath(path string) []interface{} {
	parts := strings.Split(path, ".")
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		if idx, err := strconv.Atoi(p); err == nil {
			out[i] = idx
		} else {
			out[i] = p
		}
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
