package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/parleyhq/parley/pkg/formatting"
)

const defaultMaxTokens = 800

// client wraps the shared OpenAI plumbing: deadline enforcement, chat
// completion invocation, and error taxonomy mapping.
type client struct {
	api       *openai.Client
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

func newClient(settings Settings, logger *slog.Logger) *client {
	cfg := openai.DefaultConfig(settings.Token)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}

	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	timeout := settings.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &client{
		api:       openai.NewClientWithConfig(cfg),
		timeout:   timeout,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// complete sends a system+user chat completion and parses the JSON reply
// into T. Model output wrapped in markdown fences is tolerated.
func complete[T any](ctx context.Context, c *client, model, system, user string, temperature float32) (T, error) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return zero, mapCallError(err)
	}

	if len(resp.Choices) == 0 {
		return zero, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	parsed, err := formatting.Parse[T](content)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return parsed, nil
}

// mapCallError translates transport and API failures into the adapter
// taxonomy. Deadline overruns become ErrTimeout; everything else is
// ErrUnavailable so the orchestrator can apply its retry budget.
func mapCallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: api status %d: %s", ErrUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
