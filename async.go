package apertus

import (
	"context"

	"github.com/publicai/apertus-go/models"
	"github.com/publicai/apertus-go/stream"
)

// AsyncClient mirrors Client for callers that consume results over channels
// instead of blocking. Both surfaces share the same transport and decoder,
// so identical server behavior produces identical event sequences.
type AsyncClient struct {
	Models *AsyncModelsService
	Chat   *AsyncChatService
}

// AsyncModelsService is the channel-based mirror of ModelsService.
type AsyncModelsService struct {
	svc *ModelsService
}

// AsyncChatService groups the channel-based chat operations.
type AsyncChatService struct {
	Completions *AsyncCompletionsService
}

// AsyncCompletionsService is the channel-based mirror of CompletionsService.
type AsyncCompletionsService struct {
	svc *CompletionsService
}

// NewAsyncClient builds an AsyncClient with the same construction contract
// as NewClient.
func NewAsyncClient(opts Options) (*AsyncClient, error) {
	c, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	return c.Async(), nil
}

// Async returns the channel-based view of this client. Both views share one
// transport; independent requests multiplex over its connection pool.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{
		Models: &AsyncModelsService{svc: c.Models},
		Chat:   &AsyncChatService{Completions: &AsyncCompletionsService{svc: c.Chat.Completions}},
	}
}

// List resolves the models list on a background goroutine. Exactly one value
// arrives on one of the two channels; both are then closed.
func (s *AsyncModelsService) List(ctx context.Context) (<-chan *models.ModelsList, <-chan error) {
	out := make(chan *models.ModelsList, 1)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		list, err := s.svc.List(ctx)
		if err != nil {
			errc <- err
			return
		}
		out <- list
	}()
	return out, errc
}

// Create resolves a non-streamed completion on a background goroutine, with
// the same channel contract as AsyncModelsService.List.
func (s *AsyncCompletionsService) Create(ctx context.Context, req models.ChatCompletionRequest) (<-chan *models.ChatCompletion, <-chan error) {
	out := make(chan *models.ChatCompletion, 1)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		completion, err := s.svc.Create(ctx, req)
		if err != nil {
			errc <- err
			return
		}
		out <- completion
	}()
	return out, errc
}

// Stream opens a streamed completion and returns its events as a channel.
// Opening the connection still blocks so that a non-2xx status surfaces as
// an immediate error rather than a channel event; everything after that is
// non-blocking. The connection closes when the channel drains or ctx is
// cancelled.
func (s *AsyncCompletionsService) Stream(ctx context.Context, req models.ChatCompletionRequest) (<-chan stream.Event, error) {
	st, err := s.svc.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return st.Events(ctx), nil
}
