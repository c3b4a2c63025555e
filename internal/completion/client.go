package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"resty.dev/v3"
)

// DefaultEndpoint is the chat completions endpoint used when none is configured.
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

var tracer = otel.Tracer("routine-builder/internal/completion")

var (
	// ErrMissingCredential is returned before any network call when no API key is configured.
	ErrMissingCredential = errors.New("completion: missing credential")
	// ErrMalformedResponse is returned when the reply does not carry choices[0].message.content.
	ErrMalformedResponse = errors.New("completion: malformed response")
)

// StatusError reports a non-success HTTP status from the endpoint.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion: status %d", e.Code)
	}
	return fmt.Sprintf("completion: status %d: %s", e.Code, e.Body)
}

// Message is one transcript entry in the wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the outbound request body.
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Config configures a Client.
type Config struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	// Timeout of zero leaves requests bounded only by the caller's context.
	Timeout time.Duration
}

// Client posts transcripts to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	hc := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		hc.SetTimeout(cfg.Timeout)
	}
	return &Client{cfg: cfg, http: hc}
}

// Close releases idle connections.
func (c *Client) Close() error { return c.http.Close() }

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool { return c != nil && c.cfg.APIKey != "" }

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

// Complete sends messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.HasCredential() {
		return "", ErrMissingCredential
	}
	ctx, span := tracer.Start(ctx, "completion.complete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("completion.model", c.cfg.Model),
		attribute.Int("completion.messages", len(messages)),
	)

	body := Request{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	}
	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(body).
		SetResult(&out).
		Post(c.cfg.Endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("completion: request: %w", err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
	if resp.IsError() {
		err := &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 256)}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		span.SetStatus(codes.Error, "malformed response")
		return "", ErrMalformedResponse
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
