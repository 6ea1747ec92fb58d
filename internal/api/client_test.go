package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/verityqa/verity/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig()
	cfg.API.Base.URL = srv.URL
	return NewClient(cfg, zaptest.NewLogger(t))
}

func TestGetAndStatusAssertion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"up"}`))
	})

	resp, err := c.Get(context.Background(), "/health")
	require.NoError(t, err)
	assert.NoError(t, resp.ExpectStatus(http.StatusOK))
	assert.Error(t, resp.ExpectStatus(http.StatusCreated))
	assert.NoError(t, resp.ExpectBodyContains(`"up"`))
	assert.Error(t, resp.ExpectBodyContains("down"))
}

func TestPostEncodesJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"standard_user"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user":{"id":42,"name":"standard_user"}}`))
	})

	resp, err := c.Post(context.Background(), "users",
		map[string]string{"username": "standard_user"})
	require.NoError(t, err)
	require.NoError(t, resp.ExpectStatus(http.StatusCreated))
	assert.NoError(t, resp.ExpectJSONField("user.id", "42"))
	assert.NoError(t, resp.ExpectJSONField("user.name", "standard_user"))
	assert.Error(t, resp.ExpectJSONField("user.name", "other"))
	assert.Error(t, resp.ExpectJSONField("user.missing", "x"))
}

func TestJSONFieldArrayIndexing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"name":"backpack"},{"name":"bike light"}]}`))
	})

	resp, err := c.Get(context.Background(), "/items")
	require.NoError(t, err)
	assert.NoError(t, resp.ExpectJSONField("items.1.name", "bike light"))
}

func TestCustomHeadersAreSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
	})
	c.SetHeader("Authorization", "Bearer token123")

	_, err := c.Get(context.Background(), "/secure")
	require.NoError(t, err)
}

func TestBaseURLFallsBackToBaseConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Base.URL = "http://example.test/"
	c := NewClient(cfg, zaptest.NewLogger(t))
	assert.Equal(t, "http://example.test", c.base)
}
