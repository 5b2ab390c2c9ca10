package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
)

const drafterSystem = `You draft replies to social-media messages for a
beauty brand. Match the sender's language, keep replies under 500
characters, never make medical claims, and never promise outcomes.
Return ONLY a JSON object:
{
  "reply_text": "...",
  "ask_dm_question": "optional clarifying question or null",
  "suggested_products": [{"name": "...", "category": "...", "price": "...", "reason": "..."}],
  "suggested_influencers": ["handle"],
  "citations_internal": [{"source": "...", "extract": "...", "doc_id": 0}],
  "confidence": 0.0-1.0
}
If the topic is one you must not answer (medical advice, legal disputes,
anything unsafe), return instead: {"refused": true, "refusal_reason": "..."}.`

// draftResponse wraps the drafter output with the refusal contract: the
// model signals a declined topic explicitly rather than producing an
// empty or evasive reply.
type draftResponse struct {
	drafts.Output
	Refused       bool   `json:"refused"`
	RefusalReason string `json:"refusal_reason"`
}

// OpenAIDrafter generates candidate replies with a chat-completion model.
type OpenAIDrafter struct {
	client *client
	model  string
}

// NewOpenAIDrafter creates a drafter backed by the configured model.
func NewOpenAIDrafter(settings Settings, logger *slog.Logger) *OpenAIDrafter {
	return &OpenAIDrafter{
		client: newClient(settings, logger.With("adapter", "drafter")),
		model:  settings.DrafterModel,
	}
}

func (d *OpenAIDrafter) Model() string {
	return d.model
}

func (d *OpenAIDrafter) Draft(
	ctx context.Context,
	req Request,
	c classifications.Output,
) (drafts.Output, error) {
	user := fmt.Sprintf(`Message:
%s

Detected intent: %s (confidence %.2f)
Risk level: %s
Language: %s`,
		req.Content, c.Intent, c.IntentConfidence, c.RiskLevel, c.Language)

	resp, err := complete[draftResponse](ctx, d.client, d.model, drafterSystem, user, 0.8)
	if err != nil {
		return drafts.Output{}, fmt.Errorf("draft: %w", err)
	}

	if resp.Refused {
		return drafts.Output{}, fmt.Errorf("%w: %s", ErrRefused, resp.RefusalReason)
	}

	if strings.TrimSpace(resp.ReplyText) == "" {
		return drafts.Output{}, fmt.Errorf("%w: empty reply text", ErrRefused)
	}

	d.client.logger.Info("draft generated",
		"message_id", req.MessageID,
		"chars", len(resp.ReplyText),
		"products", len(resp.SuggestedProducts),
		"confidence", resp.Confidence,
	)
	return resp.Output, nil
}
