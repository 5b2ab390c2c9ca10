package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
)

const verifierSystem = `You verify candidate replies for a beauty brand's
social-media support team. Judge the draft, not the message: check brand
tone, regulatory compliance (no medical or outcome claims), factual
consistency with the original message, grammar, and length.
Return ONLY a JSON object:
{
  "verdict": "PASS|REWRITE|ESCALATE",
  "issues": [{"type": "tone|compliance|factual|grammar|length",
              "severity": "minor|major|critical",
              "description": "...", "location": "..."}],
  "rewritten_reply_text": "required iff verdict is REWRITE, else null",
  "reasoning": "one sentence"
}
PASS only when the draft ships as written. REWRITE when a targeted fix
suffices. ESCALATE when no machine reply should be sent.`

// OpenAIVerifier checks drafts with a model independent of the drafter.
type OpenAIVerifier struct {
	client *client
	model  string
}

// NewOpenAIVerifier creates a verifier backed by the configured model.
func NewOpenAIVerifier(settings Settings, logger *slog.Logger) *OpenAIVerifier {
	return &OpenAIVerifier{
		client: newClient(settings, logger.With("adapter", "verifier")),
		model:  settings.VerifierModel,
	}
}

func (v *OpenAIVerifier) Model() string {
	return v.model
}

func (v *OpenAIVerifier) Verify(
	ctx context.Context,
	req Request,
	d drafts.Output,
	c classifications.Output,
) (drafts.VerificationOutput, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original message:\n%s\n\n", req.Content)
	fmt.Fprintf(&sb, "Intent: %s\nRisk level: %s\nRisk flags: %v\n\n", c.Intent, c.RiskLevel, c.RiskFlags)
	fmt.Fprintf(&sb, "Draft to verify:\n%s\n", d.ReplyText)

	if d.AskDMQuestion != nil {
		fmt.Fprintf(&sb, "\nSuggested DM question: %s\n", *d.AskDMQuestion)
	}
	for _, p := range d.SuggestedProducts {
		fmt.Fprintf(&sb, "\nSuggested product: %s (%s): %s", p.Name, p.Price, p.Reason)
	}

	out, err := complete[drafts.VerificationOutput](ctx, v.client, v.model, verifierSystem, sb.String(), 0.5)
	if err != nil {
		return drafts.VerificationOutput{}, fmt.Errorf("verify: %w", err)
	}

	if !out.Verdict.Valid() {
		return drafts.VerificationOutput{}, fmt.Errorf("%w: unknown verdict %q", ErrUnavailable, out.Verdict)
	}

	if out.Verdict == drafts.VerdictRewrite && (out.RewrittenText == nil || strings.TrimSpace(*out.RewrittenText) == "") {
		return drafts.VerificationOutput{}, fmt.Errorf("%w: rewrite verdict without rewritten text", ErrUnavailable)
	}

	v.client.logger.Info("draft verified",
		"message_id", req.MessageID,
		"verdict", out.Verdict,
		"issues", len(out.Issues),
	)
	return out, nil
}
