package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Object literals the API uses to tag response kinds. They are checked,
// not just parsed, so a models list can never be mistaken for a completion.
const (
	ObjectList           = "list"
	ObjectChatCompletion = "chat.completion"
)

// Message roles accepted by the chat completions API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ErrUnexpectedShape reports a response that was valid JSON but does not
// match the expected schema for its declared kind.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Message is a single conversation message sent in a request. Content is
// usually a plain string but structured content parts are passed through
// unchanged.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Name    string `json:"name,omitempty"`
}

// SystemMessage builds a system-role message with text content.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user-role message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds an assistant-role message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ChatCompletionRequest is the request body for /v1/chat/completions.
// Optional fields are pointers so that values the caller never set are
// omitted from the payload entirely; the API treats presence and absence
// as meaningful.
type ChatCompletionRequest struct {
	Model            string             `json:"model"`
	Messages         []Message          `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	N                *int               `json:"n,omitempty"`
	Stream           *bool              `json:"stream,omitempty"`
	Stop             any                `json:"stop,omitempty"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`
	Tools            []map[string]any   `json:"tools,omitempty"`
	ToolChoice       any                `json:"tool_choice,omitempty"`
}

// ChatChoiceMessage is the fully materialized message of a non-streamed choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoiceDelta is the incremental part of a streamed choice. Content is a
// pointer: a frame carrying an empty string delta is distinct from a frame
// carrying no content at all.
type ChatChoiceDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ChatChoice is one completion choice. Message is set for non-streamed
// responses, Delta for streamed chunks.
type ChatChoice struct {
	Index        int                `json:"index"`
	Message      *ChatChoiceMessage `json:"message,omitempty"`
	Delta        *ChatChoiceDelta   `json:"delta,omitempty"`
	FinishReason *string            `json:"finish_reason,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatCompletion is one fully materialized, non-streamed completion response.
type ChatCompletion struct {
	ID                string       `json:"id"`
	Object            string       `json:"object"`
	Created           int64        `json:"created"`
	Model             string       `json:"model"`
	Choices           []ChatChoice `json:"choices"`
	Usage             *Usage       `json:"usage,omitempty"`
	SystemFingerprint string       `json:"system_fingerprint,omitempty"`
}

// Validate checks the object literal declared by the response.
func (c *ChatCompletion) Validate() error {
	if c.Object != ObjectChatCompletion {
		return errorShape("object %q is not %q", c.Object, ObjectChatCompletion)
	}
	return nil
}

// ChatCompletionChunk is one frame of a streamed completion. Every field
// except choices may be absent; metadata often appears only on the first
// or last chunk.
type ChatCompletionChunk struct {
	ID      string       `json:"id,omitempty"`
	Object  string       `json:"object,omitempty"`
	Created int64        `json:"created,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// StreamEvent is the high-level projection of one decoded chunk. Delta is
// the text contributed by the first choice, nil when the frame carried no
// content. Raw exposes the full chunk, including any further choices.
type StreamEvent struct {
	Delta       *string
	ChoiceIndex int
	Raw         *ChatCompletionChunk
}

// ModelInfo describes one model exposed by the provider. Fields the schema
// does not name are preserved in Raw.
type ModelInfo struct {
	ID      string         `json:"id"`
	Object  string         `json:"object,omitempty"`
	Created int64          `json:"created,omitempty"`
	OwnedBy string         `json:"owned_by,omitempty"`
	Raw     map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and collects everything else
// into the Raw bag, so provider additions survive a round trip through
// the typed model.
func (m *ModelInfo) UnmarshalJSON(data []byte) error {
	type plain ModelInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	for _, known := range []string{"id", "object", "created", "owned_by"} {
		delete(extra, known)
	}
	*m = ModelInfo(p)
	if len(extra) > 0 {
		m.Raw = extra
	}
	return nil
}

// ModelsList is the response of /v1/models.
type ModelsList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// Validate checks the object literal declared by the response.
func (l *ModelsList) Validate() error {
	if l.Object != ObjectList {
		return errorShape("object %q is not %q", l.Object, ObjectList)
	}
	return nil
}

func errorShape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedShape, fmt.Sprintf(format, args...))
}
