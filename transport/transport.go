package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/publicai/apertus-go/internal/logger"
)

const (
	// DefaultBaseURL is the Public AI inference gateway.
	DefaultBaseURL = "https://api.publicai.co"
	// DefaultTimeout applies per request when Options.Timeout is zero.
	DefaultTimeout = 30 * time.Second
	// EnvAPIKey is the environment variable consulted when no explicit
	// key is configured.
	EnvAPIKey = "APERTUS_API_KEY"
)

// ErrMissingAPIKey is returned by New when no bearer token is resolvable.
var ErrMissingAPIKey = errors.New("api key is required: set " + EnvAPIKey + " or pass an explicit key")

// Options configures a Transport.
type Options struct {
	// APIKey is the bearer token. Falls back to the APERTUS_API_KEY
	// environment variable when empty.
	APIKey string
	// BaseURL of the API. Defaults to DefaultBaseURL.
	BaseURL string
	// Timeout per request, streaming included. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Transport owns one configured HTTP client bound to a base URL and the
// fixed request headers. It performs no retries; any non-2xx response is
// mapped to an *APIError.
type Transport struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
}

// New builds a Transport. It fails before any network I/O when no API key
// resolves from the options or the environment.
func New(opts Options) (*Transport, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Transport{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     logger.GetLogger().WithComponent("transport"),
	}, nil
}

// BaseURL returns the normalized base URL the transport is bound to.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

func (t *Transport) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Get performs a blocking GET and returns the response body.
func (t *Transport) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := t.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return t.do(req)
}

// PostJSON performs a blocking POST with a JSON payload and returns the
// response body.
func (t *Transport) PostJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := t.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return t.do(req)
}

func (t *Transport) do(req *http.Request) ([]byte, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	t.log.Debug("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body, req.URL.String())
	}
	return body, nil
}

// PostStream opens a streaming POST. When the initial status is non-2xx the
// whole body is drained, mapped to an *APIError and the connection closed
// before any line is yielded. Otherwise the returned Lines yields each
// non-empty line of the body as it arrives; the caller must Close it.
func (t *Transport) PostStream(ctx context.Context, path string, payload any) (*Lines, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := t.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	t.log.Debug("%s %s -> %d (stream)", req.Method, req.URL.Path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, apiError(resp.StatusCode, raw, req.URL.String())
	}
	return newLines(resp.Body), nil
}

// maxLineSize bounds a single protocol line; chunks are small but provider
// frames with large tool payloads have been seen in the wild.
const maxLineSize = 256 * 1024

// Lines is a pull-based cursor over the raw lines of a streaming response
// body. Closing it closes the underlying connection, so abandoning a stream
// mid-way does not leak it.
type Lines struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newLines(body io.ReadCloser) *Lines {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)
	return &Lines{body: body, scanner: scanner}
}

// Next returns the next non-empty line in arrival order. It returns io.EOF
// once the connection closes, or the underlying read error.
func (l *Lines) Next() (string, error) {
	for l.scanner.Scan() {
		line := l.scanner.Text()
		if line == "" {
			continue
		}
		return line, nil
	}
	if err := l.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the underlying connection.
func (l *Lines) Close() error {
	return l.body.Close()
}
