package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPSender posts replies to a platform gateway endpoint. Transport-level
// retries (connection failures, 5xx) are handled by retryablehttp; a 2xx
// response means the platform accepted the reply.
type HTTPSender struct {
	client   *retryablehttp.Client
	endpoint string
	token    string
}

// NewHTTPSender creates a sender targeting the given gateway endpoint.
func NewHTTPSender(endpoint, token string, timeout time.Duration, logger *slog.Logger) *HTTPSender {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = slog.NewLogLogger(logger.With("system", "dispatch-http").Handler(), slog.LevelDebug)

	return &HTTPSender{
		client:   client,
		endpoint: endpoint,
		token:    token,
	}
}

func (s *HTTPSender) Send(ctx context.Context, reply Reply) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway status %d", resp.StatusCode)
	}
	return nil
}

// LogSender records outbound replies without delivering them. It stands in
// for the platform gateway in local development.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, reply Reply) error {
	s.Logger.Info("reply send (log only)",
		"message_id", reply.MessageID,
		"draft_id", reply.DraftID,
		"platform", reply.Platform,
		"chars", len(reply.Text),
	)
	return nil
}
