// Package stream decodes the line-delimited chat completion protocol into
// typed events. One Decoder serves both the blocking Recv surface and the
// channel-based Events surface, so the two concurrency modes cannot drift.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/publicai/apertus-go/models"
)

// Sentinel is the literal payload that terminates a well-behaved stream.
const Sentinel = "[DONE]"

const dataPrefix = "data:"

// LineSource is a pull-based source of raw protocol lines. Next returns
// io.EOF once the source is exhausted. transport.Lines satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Decoder turns raw protocol lines into stream events. It buffers nothing
// beyond the current line: every line is a complete protocol record, so a
// Decoder is safe for arbitrarily long streams.
type Decoder struct {
	src  LineSource
	done bool
}

// NewDecoder wraps a line source. Each stream call owns its own Decoder;
// instances are not safe for concurrent use.
func NewDecoder(src LineSource) *Decoder {
	return &Decoder{src: src}
}

// Recv returns the next decoded event. It returns io.EOF exactly once per
// stream, after the sentinel or when the source is exhausted. Lines that do
// not parse as JSON are skipped silently; providers interleave keepalives
// and comments with real frames. A frame that is valid JSON but carries no
// choices key is a shape error and propagates.
func (d *Decoder) Recv() (*models.StreamEvent, error) {
	if d.done {
		return nil, io.EOF
	}
	for {
		line, err := d.src.Next()
		if err != nil {
			d.done = true
			return nil, err
		}

		text := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(text, dataPrefix); ok {
			text = strings.TrimSpace(rest)
		}
		if text == "" {
			continue
		}
		if text == Sentinel {
			d.done = true
			return nil, io.EOF
		}

		var chunk models.ChatCompletionChunk
		if err := json.Unmarshal([]byte(text), &chunk); err != nil {
			continue
		}
		if chunk.Choices == nil {
			d.done = true
			return nil, fmt.Errorf("%w: chunk carries no choices", models.ErrUnexpectedShape)
		}
		return project(&chunk), nil
	}
}

// project builds the high-level event for one decoded chunk. Only the first
// choice is surfaced; further choices stay reachable through Raw. An empty
// choices list is tolerated and yields an event with no delta.
func project(chunk *models.ChatCompletionChunk) *models.StreamEvent {
	ev := &models.StreamEvent{ChoiceIndex: 0, Raw: chunk}
	if len(chunk.Choices) > 0 {
		if delta := chunk.Choices[0].Delta; delta != nil && delta.Content != nil {
			ev.Delta = delta.Content
		}
	}
	return ev
}

// Event is the channel-surface wrapper: either a decoded event or the
// terminal error of the stream. A clean end of stream closes the channel
// without a trailing Event.
type Event struct {
	*models.StreamEvent
	Err error
}

// Events adapts the decoder to a channel. The channel is closed when the
// stream terminates or ctx is cancelled; the consumer's pace bounds reads
// from the underlying connection up to the channel buffer.
func (d *Decoder) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		for {
			ev, err := d.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					select {
					case ch <- Event{Err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case ch <- Event{StreamEvent: ev}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Accumulate drains the decoder and concatenates every text delta into the
// full assistant message.
func Accumulate(d *Decoder) (string, error) {
	var b strings.Builder
	for {
		ev, err := d.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return b.String(), err
		}
		if ev.Delta != nil {
			b.WriteString(*ev.Delta)
		}
	}
}
