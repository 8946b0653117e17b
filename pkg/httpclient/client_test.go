package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/things", r.URL.Path)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := New(server.URL)
	body, err := client.Get(context.Background(), "/things")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
}

func TestErrorStatusBecomesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "nope"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Get(context.Background(), "/missing")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.JSONEq(t, `{"error": "nope"}`, string(httpErr.Body))
}

func TestPostJSONSetsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Paris", payload["city"])
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.PostJSON(context.Background(), "/plan", map[string]string{"city": "Paris"})
	require.NoError(t, err)
}

func TestUserAgentAndStaticHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "marcheroute/0.0.1", r.Header.Get("User-Agent"))
		assert.Equal(t, "abc", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL,
		WithUserAgent("marcheroute/0.0.1"),
		WithHeader("X-Api-Key", "abc"),
	)
	_, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
}

func TestCorrelationIDPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "corr-123", r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx := logger.ContextWithCorrelationID(context.Background(), "corr-123")
	client := New(server.URL)
	_, err := client.Get(ctx, "/")
	require.NoError(t, err)
}

func TestRetryOnlyOnRetryableStatuses(t *testing.T) {
	t.Run("retryable status is retried", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := New(server.URL, WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 1}))
		_, err := client.Get(context.Background(), "/")
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("client error is not retried", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := New(server.URL, WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 1}))
		_, err := client.Get(context.Background(), "/")
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}
