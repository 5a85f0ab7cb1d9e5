// Package genai provides the LLM completion capability on the OpenAI Chat
// Completions API, with multi-key rotation, a retry policy and a request
// rate limit.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// DefaultTemperature matches the conversational register of the classifier.
const DefaultTemperature = 0.7

var (
	// ErrNoAPIKey is returned when the client is built without any key.
	ErrNoAPIKey = errors.New("no OpenAI API key configured")
	// ErrNoChoicesReturned is returned when the API answers without choices.
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// chatService is the subset of openai.ChatCompletionService the client uses.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration for a Client.
type Opts struct {
	APIKeys     []string
	Model       string
	Temperature float64
	// RequestsPerSecond limits outbound calls; zero disables the limit.
	RequestsPerSecond float64
	Retry             *RetryPolicy
}

// Option configures a Client.
type Option func(*Opts)

// WithAPIKeys sets the API keys. Duplicates and blanks are dropped.
func WithAPIKeys(keys ...string) Option {
	return func(o *Opts) { o.APIKeys = append(o.APIKeys, keys...) }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithRateLimit caps requests per second across all keys.
func WithRateLimit(rps float64) Option {
	return func(o *Opts) { o.RequestsPerSecond = rps }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Opts) { o.Retry = &p }
}

// Client completes prompts with the OpenAI Chat Completions API. It holds one
// chat service per API key and rotates between them on rate limiting.
type Client struct {
	chats       []chatService
	ring        *KeyRing
	retry       RetryPolicy
	limiter     *rate.Limiter
	model       string
	temperature float64
}

// NewClient builds a Client from options.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel, Temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&cfg)
	}
	ring := NewKeyRing(cfg.APIKeys)
	if ring.Len() == 0 {
		return nil, ErrNoAPIKey
	}

	chats := make([]chatService, 0, ring.Len())
	for _, key := range ring.Keys() {
		// The SDK's own retries would stack under RetryPolicy.
		cli := openai.NewClient(option.WithAPIKey(key), option.WithMaxRetries(0))
		chats = append(chats, &cli.Chat.Completions)
	}

	c := newClient(chats, cfg)
	c.ring = ring
	slog.Debug("genai.NewClient: client created", "keys", ring.Len(), "model", c.model, "rps", cfg.RequestsPerSecond)
	return c, nil
}

func newClient(chats []chatService, cfg Opts) *Client {
	c := &Client{
		chats:       chats,
		ring:        newSlotRing(len(chats)),
		retry:       DefaultRetryPolicy(),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if cfg.Retry != nil {
		c.retry = *cfg.Retry
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.GeneratePrompt(ctx, "", prompt)
}

// GeneratePrompt sends an optional system prompt and a user prompt.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	}

	var resp *openai.ChatCompletion
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		idx := c.ring.Current()
		var err error
		resp, err = c.chats[idx].New(ctx, params)
		if err != nil {
			slog.Warn("genai.GeneratePrompt: completion failed", "error", err, "attempt", attempt, "key", idx)
			if c.retry.Retryable != nil && c.retry.Retryable(err) && c.ring.Len() > 1 {
				next := c.ring.Rotate()
				slog.Info("genai.GeneratePrompt: rotated API key after rate limit", "key", next)
				return err
			}
			return Permanent(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// IsRateLimited reports whether err is an HTTP 429 or a quota error.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}
