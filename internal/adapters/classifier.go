package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parleyhq/parley/internal/classifications"
)

const classifierSystem = `You classify inbound social-media messages for a
beauty brand's support team. Return ONLY a JSON object:
{
  "intent": "availability|routine_usage|shade_color|delivery_return|complaint|where_to_buy|ingredients|recommendation|spam|unknown",
  "intent_confidence": 0.0-1.0,
  "risk_flags": ["medical_claim", ...],
  "risk_level": "low|medium|high|critical",
  "language": "ISO 639-1 code",
  "should_dm": true|false,
  "should_escalate": true|false,
  "reasoning": "one sentence"
}
Flag anything touching health claims, allergies, legal threats, self-harm,
or minors. When unsure, prefer a higher risk level and lower confidence.`

// OpenAIClassifier scores messages with a chat-completion model.
type OpenAIClassifier struct {
	client *client
	model  string
}

// NewOpenAIClassifier creates a classifier backed by the configured model.
func NewOpenAIClassifier(settings Settings, logger *slog.Logger) *OpenAIClassifier {
	return &OpenAIClassifier{
		client: newClient(settings, logger.With("adapter", "classifier")),
		model:  settings.ClassifierModel,
	}
}

func (c *OpenAIClassifier) Model() string {
	return c.model
}

func (c *OpenAIClassifier) Classify(ctx context.Context, req Request) (classifications.Output, error) {
	user := fmt.Sprintf("Platform: %s\nMessage:\n%s", req.Platform, req.Content)

	out, err := complete[classifications.Output](ctx, c.client, c.model, classifierSystem, user, 0.3)
	if err != nil {
		return classifications.Output{}, fmt.Errorf("classify: %w", err)
	}

	c.client.logger.Info("message classified",
		"message_id", req.MessageID,
		"intent", out.Intent,
		"confidence", out.IntentConfidence,
		"risk_level", out.RiskLevel,
	)
	return out, nil
}
