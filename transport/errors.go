package transport

import (
	"encoding/json"
	"fmt"
)

// APIError is the uniform error for any non-2xx response from the API,
// whether it was detected on a blocking call or before a stream started.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Payload    map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apertus api error %d: %s", e.StatusCode, e.Message)
}

// apiError maps a status code and pre-read body to an APIError. The body is
// parsed as JSON when possible; the message is taken from the payload's
// "error" field, then "error.message", then "message", falling back to the
// raw body text. Unparseable bodies leave Payload nil.
func apiError(status int, body []byte, url string) *APIError {
	e := &APIError{StatusCode: status, Message: string(body), URL: url}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return e
	}
	e.Payload = payload

	switch v := payload["error"].(type) {
	case string:
		e.Message = v
		return e
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			e.Message = msg
			return e
		}
	}
	if msg, ok := payload["message"].(string); ok && msg != "" {
		e.Message = msg
	}
	return e
}
