package apertus

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publicai/apertus-go/models"
	"github.com/publicai/apertus-go/transport"
)

func TestAsyncList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list","data":[{"id":"m1"}]}`))
	}))

	out, errc := client.Async().Models.List(context.Background())

	select {
	case list := <-out:
		require.NotNil(t, list)
		require.Len(t, list.Data, 1)
		assert.Equal(t, "m1", list.Data[0].ID)
	case err := <-errc:
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAsyncListError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))

	out, errc := client.Async().Models.List(context.Background())

	select {
	case list := <-out:
		if list != nil {
			t.Fatalf("unexpected result: %v", list)
		}
		// Result channel closed without a value; the error must be waiting.
		err := <-errc
		var apiErr *transport.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.StatusCode)
	case err := <-errc:
		var apiErr *transport.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.StatusCode)
	}
}

func TestAsyncCreate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"abc","object":"chat.completion","created":0,"model":"test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hi"}}]}`))
	}))

	out, errc := client.Async().Chat.Completions.Create(context.Background(), models.ChatCompletionRequest{
		Model:    "test",
		Messages: []models.Message{models.UserMessage("hello")},
	})

	completion := <-out
	if completion == nil {
		t.Fatalf("unexpected error: %v", <-errc)
	}
	require.Len(t, completion.Choices, 1)
	assert.Equal(t, "hi", completion.Choices[0].Message.Content)
}

func TestAsyncStreamMatchesBlocking(t *testing.T) {
	handler := sseHandler(t,
		`data: {"choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"index":0,"delta":{"content":"he"}}]}`,
		`data: {"choices":[{"index":0,"delta":{"content":"llo"}}]}`,
		`data: [DONE]`,
	)

	req := models.ChatCompletionRequest{
		Model:    "test",
		Messages: []models.Message{models.UserMessage("hello")},
	}

	client, _ := newTestClient(t, handler)

	// Blocking surface.
	st, err := client.Chat.Completions.Stream(context.Background(), req)
	require.NoError(t, err)
	blockingText, err := st.Text()
	require.NoError(t, err)

	// Channel surface over the same server behavior.
	ch, err := client.Async().Chat.Completions.Stream(context.Background(), req)
	require.NoError(t, err)

	var asyncText string
	var asyncEvents int
	for ev := range ch {
		require.NoError(t, ev.Err)
		asyncEvents++
		if ev.Delta != nil {
			asyncText += *ev.Delta
		}
	}

	assert.Equal(t, "hello", blockingText)
	assert.Equal(t, blockingText, asyncText)
	assert.Equal(t, 3, asyncEvents)
}

func TestAsyncStreamOpenErrorIsImmediate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"overloaded"}`))
	}))

	_, err := client.Async().Chat.Completions.Stream(context.Background(), models.ChatCompletionRequest{Model: "test"})

	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
