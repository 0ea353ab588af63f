package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewFallsBackToEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	tr, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, "env-key", tr.apiKey)
}

func TestNewDefaults(t *testing.T) {
	tr, err := New(Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, tr.BaseURL())
	assert.Equal(t, DefaultTimeout, tr.client.Timeout)
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	tr, err := New(Options{APIKey: "k", BaseURL: "https://example.test/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", tr.BaseURL())
}

func TestGetSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	tr, err := New(Options{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	body, err := tr.Get(context.Background(), "/v1/models")
	require.NoError(t, err)
	assert.JSONEq(t, `{"object":"list","data":[]}`, string(body))
}

func TestPostJSONSendsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "test-model", got["model"])
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr, err := New(Options{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	body, err := tr.PostJSON(context.Background(), "/v1/chat/completions", map[string]any{"model": "test-model"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestNonSuccessStatusMapsToAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	tr, err := New(Options{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = tr.Get(context.Background(), "/v1/models")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "invalid api key", apiErr.Message)
	assert.Equal(t, server.URL+"/v1/models", apiErr.URL)
}

func TestPostStreamYieldsLinesInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: one\n\ndata: two\n\ndata: [DONE]\n"))
	}))
	defer server.Close()

	tr, err := New(Options{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	lines, err := tr.PostStream(context.Background(), "/v1/chat/completions", map[string]any{})
	require.NoError(t, err)
	defer lines.Close()

	var got []string
	for {
		line, err := lines.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, line)
	}
	// Blank separator lines are not yielded.
	assert.Equal(t, []string{"data: one", "data: two", "data: [DONE]"}, got)
}

func TestPostStreamErrorStatusDrainsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"key not entitled to this model"}`))
	}))
	defer server.Close()

	tr, err := New(Options{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = tr.PostStream(context.Background(), "/v1/chat/completions", map[string]any{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "key not entitled to this model", apiErr.Message)
}

func TestLinesCloseReleasesConnection(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: one\n"))
		w.(http.Flusher).Flush()
		// Hold the connection open until the client hangs up.
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	tr, err := New(Options{APIKey: "k", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	lines, err := tr.PostStream(context.Background(), "/v1/chat/completions", map[string]any{})
	require.NoError(t, err)

	line, err := lines.Next()
	require.NoError(t, err)
	assert.Equal(t, "data: one", line)

	// Abandon the stream; Close must tear the connection down.
	require.NoError(t, lines.Close())

	_, err = lines.Next()
	assert.Error(t, err)
}
