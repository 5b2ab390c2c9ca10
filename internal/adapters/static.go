package adapters

import (
	"context"
	"strings"

	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
)

// Static adapters produce deterministic results without external calls.
// They back local development and demos when no API token is configured;
// tests use their own fakes.

// StaticClassifier assigns intent by keyword lookup.
type StaticClassifier struct{}

func (StaticClassifier) Model() string { return "static-classifier" }

func (StaticClassifier) Classify(_ context.Context, req Request) (classifications.Output, error) {
	content := strings.ToLower(req.Content)

	out := classifications.Output{
		Intent:           classifications.IntentUnknown,
		IntentConfidence: 0.5,
		RiskFlags:        []string{},
		RiskLevel:        classifications.RiskMedium,
		Language:         "en",
		Reasoning:        "static keyword classification",
	}

	switch {
	case strings.Contains(content, "allerg") || strings.Contains(content, "reaction"):
		out.Intent = classifications.IntentComplaint
		out.IntentConfidence = 0.9
		out.RiskFlags = []string{"medical_claim"}
		out.RiskLevel = classifications.RiskCritical
		out.ShouldEscalate = true
	case strings.Contains(content, "refund") || strings.Contains(content, "return"):
		out.Intent = classifications.IntentDeliveryReturn
		out.IntentConfidence = 0.9
		out.RiskLevel = classifications.RiskLow
	case strings.Contains(content, "where") || strings.Contains(content, "buy"):
		out.Intent = classifications.IntentWhereToBuy
		out.IntentConfidence = 0.92
		out.RiskLevel = classifications.RiskLow
	case strings.Contains(content, "recommend") || strings.Contains(content, "which"):
		out.Intent = classifications.IntentRecommendation
		out.IntentConfidence = 0.88
		out.RiskLevel = classifications.RiskLow
		out.ShouldDM = true
	}

	return out, nil
}

// StaticDrafter produces a generic acknowledgment reply.
type StaticDrafter struct{}

func (StaticDrafter) Model() string { return "static-drafter" }

func (StaticDrafter) Draft(_ context.Context, _ Request, c classifications.Output) (drafts.Output, error) {
	return drafts.Output{
		ReplyText:            "Thanks for reaching out! We'll get back to you with a personalized answer shortly.",
		SuggestedProducts:    []drafts.Product{},
		SuggestedInfluencers: []string{},
		Citations:            []drafts.Citation{},
		Confidence:           0.4,
	}, nil
}

// StaticVerifier passes every draft with no findings.
type StaticVerifier struct{}

func (StaticVerifier) Model() string { return "static-verifier" }

func (StaticVerifier) Verify(_ context.Context, _ Request, _ drafts.Output, _ classifications.Output) (drafts.VerificationOutput, error) {
	return drafts.VerificationOutput{
		Verdict:   drafts.VerdictPass,
		Issues:    []drafts.Issue{},
		Reasoning: "static verification",
	}, nil
}
