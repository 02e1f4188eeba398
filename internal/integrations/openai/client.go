package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"bookstore-voice/internal/domain"
	"bookstore-voice/internal/tracing"
)

const (
	DefaultBaseURL = "http://localhost:11434/v1"
	defaultTimeout = 12 * time.Second
)

// KeySource yields the bearer token for the inference endpoint. Local Ollama
// accepts any value, so a nil source is valid.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused chat-completions client for any OpenAI-compatible
// endpoint, Ollama's /v1 API included.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       KeySource

	apiMu sync.Mutex
	api   *goopenai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each round trip. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithKeySource(keys KeySource) Option {
	return func(c *Client) {
		c.keys = keys
	}
}

// NewClient creates a Client. The API key, when a KeySource is configured, is
// resolved on the first successful Chat call and reused for the lifetime of
// the process.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		return nil, errors.New("openai: http client must not be nil")
	}
	return c, nil
}

// apiBaseURL normalizes the configured base so it always ends in /v1, which
// go-openai expects before appending /chat/completions.
func apiBaseURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// resolveAPI builds the go-openai client on first success. A key lookup
// failure is returned to this caller only; the next call tries again.
func (c *Client) resolveAPI(ctx context.Context) (*goopenai.Client, error) {
	c.apiMu.Lock()
	defer c.apiMu.Unlock()
	if c.api != nil {
		return c.api, nil
	}

	key := ""
	if c.keys != nil {
		k, err := c.keys.Value(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("openai: resolve api key: %w", err)
		}
		key = k
	}
	cfg := goopenai.DefaultConfig(key)
	cfg.BaseURL = apiBaseURL(c.baseURL)
	cfg.HTTPClient = c.httpClient
	c.api = goopenai.NewClientWithConfig(cfg)
	return c.api, nil
}

// Chat sends one non-streaming completion request and returns the first
// choice's content.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (result string, err error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	ctx, span := tracing.Start(ctx, "llm.request",
		attribute.String("llm.model", model),
		attribute.Int("llm.messages", len(messages)),
	)
	defer func() { tracing.End(span, err) }()

	api, err := c.resolveAPI(ctx)
	if err != nil {
		return "", err
	}

	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", c.statusError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	result = strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return "", errors.New("openai: empty completion content")
	}
	return result, nil
}

// statusError lifts go-openai's status-bearing errors into HTTPStatusError so
// callers can branch on the status code without importing go-openai.
func (c *Client) statusError(err error) error {
	url := apiBaseURL(c.baseURL) + "/chat/completions"

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, URL: url, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, URL: url, Body: body}
	}
	return err
}
