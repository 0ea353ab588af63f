// Package apertus is a client for the Apertus (Public AI) inference API.
// It exposes the OpenAI-compatible surface: listing models and creating
// chat completions, either as one response or as a streamed sequence of
// delta events.
package apertus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/publicai/apertus-go/models"
	"github.com/publicai/apertus-go/stream"
	"github.com/publicai/apertus-go/transport"
)

// API paths.
const (
	ModelsPath          = "/v1/models"
	ChatCompletionsPath = "/v1/chat/completions"
)

// Options configures a Client. See transport.Options for defaults.
type Options = transport.Options

// Client is the blocking call surface. It holds no mutable session state:
// every call is independent and conversation history belongs to the caller.
type Client struct {
	Models *ModelsService
	Chat   *ChatService
}

// ModelsService exposes the /v1/models operations.
type ModelsService struct {
	transport *transport.Transport
}

// ChatService groups the chat operations, mirroring the API's path layout.
type ChatService struct {
	Completions *CompletionsService
}

// CompletionsService exposes the /v1/chat/completions operations.
type CompletionsService struct {
	transport *transport.Transport
}

// NewClient builds a Client. It fails without touching the network when no
// API key resolves from the options or the APERTUS_API_KEY environment
// variable.
func NewClient(opts Options) (*Client, error) {
	t, err := transport.New(opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		Models: &ModelsService{transport: t},
		Chat:   &ChatService{Completions: &CompletionsService{transport: t}},
	}, nil
}

// List returns the models available to the configured key, in the order the
// provider reports them.
func (s *ModelsService) List(ctx context.Context) (*models.ModelsList, error) {
	body, err := s.transport.Get(ctx, ModelsPath)
	if err != nil {
		return nil, err
	}
	var list models.ModelsList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode models list: %w", err)
	}
	if err := list.Validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

// Create performs a non-streamed completion. The stream flag is cleared
// regardless of what the caller set.
func (s *CompletionsService) Create(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletion, error) {
	req.Stream = nil
	body, err := s.transport.PostJSON(ctx, ChatCompletionsPath, &req)
	if err != nil {
		return nil, err
	}
	var completion models.ChatCompletion
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if err := completion.Validate(); err != nil {
		return nil, err
	}
	return &completion, nil
}

// Stream performs a streamed completion. The stream flag is forced on. The
// returned stream owns the connection; the caller must drain it or Close it.
func (s *CompletionsService) Stream(ctx context.Context, req models.ChatCompletionRequest) (*ChatCompletionStream, error) {
	streaming := true
	req.Stream = &streaming
	lines, err := s.transport.PostStream(ctx, ChatCompletionsPath, &req)
	if err != nil {
		return nil, err
	}
	return &ChatCompletionStream{decoder: stream.NewDecoder(lines), conn: lines}, nil
}

// ChatCompletionStream is one in-flight streamed completion. Each call to
// CompletionsService.Stream returns a fresh instance with its own decoder
// and line cursor; instances are not safe for concurrent use.
type ChatCompletionStream struct {
	decoder *stream.Decoder
	conn    io.Closer
}

// Recv blocks until the next event arrives and returns it. It returns
// io.EOF on clean end of stream (sentinel or connection close); transport
// errors propagate as-is.
func (s *ChatCompletionStream) Recv() (*models.StreamEvent, error) {
	return s.decoder.Recv()
}

// Events adapts the stream to a channel. The connection is closed when the
// stream terminates or ctx is cancelled, whichever comes first.
func (s *ChatCompletionStream) Events(ctx context.Context) <-chan stream.Event {
	out := make(chan stream.Event)
	go func() {
		defer close(out)
		defer s.Close()
		for ev := range s.decoder.Events(ctx) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Text drains the stream, closes it, and returns the concatenated deltas.
func (s *ChatCompletionStream) Text() (string, error) {
	defer s.Close()
	return stream.Accumulate(s.decoder)
}

// Close releases the underlying connection. It is safe to call after the
// stream has already terminated.
func (s *ChatCompletionStream) Close() error {
	return s.conn.Close()
}
