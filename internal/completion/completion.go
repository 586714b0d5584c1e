// Package completion talks to the language-model service that writes the
// itineraries. Callers depend on the Completer interface; OpenAI is the
// production implementation, Cached memoises any Completer, and Unavailable
// stands in when no API key is configured.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/patrickmn/go-cache"

	"github.com/sakif/dreamways/internal/apperror"
)

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	_ Completer = (*OpenAI)(nil)
	_ Completer = (*Cached)(nil)
	_ Completer = Unavailable{}
)

// Config configures the OpenAI completer.
type Config struct {
	APIKey    string
	BaseURL   string // optional OpenAI-compatible endpoint
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// OpenAI calls the Chat Completions API with one user message, a fixed model
// and a bounded output budget. It never retries.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOpenAI builds the client. The SDK's own retry loop is switched off.
func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Complete sends prompt and returns the first choice's text, trimmed.
// Transport and API failures come back wrapped in apperror.ErrUpstream.
func (c *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Error("completion API error",
				slog.Int("status", apiErr.StatusCode),
				slog.String("error", err.Error()),
			)
			return "", apperror.Upstream(fmt.Sprintf("completion service returned status %d", apiErr.StatusCode), err)
		}
		c.logger.Error("completion request failed", slog.String("error", err.Error()))
		return "", apperror.Upstream("completion service unreachable", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperror.Upstream("completion service returned no choices", errors.New("empty choices"))
	}

	c.logger.Debug("completion finished",
		slog.String("model", resp.Model),
		slog.Int64("completionTokens", resp.Usage.CompletionTokens),
		slog.Duration("took", time.Since(start)),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Unavailable is the Completer used when no API key is configured.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string) (string, error) {
	return "", apperror.Unavailable("trip generation is not configured")
}

// Cached remembers successful completions per prompt for a fixed TTL.
// Errors and empty results are never cached.
type Cached struct {
	next  Completer
	cache *cache.Cache
}

// NewCached wraps next with a prompt-keyed cache.
func NewCached(next Completer, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *Cached) Complete(ctx context.Context, prompt string) (string, error) {
	if v, ok := c.cache.Get(prompt); ok {
		return v.(string), nil
	}
	text, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if text != "" {
		c.cache.SetDefault(prompt, text)
	}
	return text, nil
}
