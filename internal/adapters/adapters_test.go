package adapters_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/parleyhq/parley/internal/adapters"
	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable is retryable", adapters.ErrUnavailable, true},
		{"timeout is retryable", adapters.ErrTimeout, true},
		{"wrapped timeout is retryable", fmt.Errorf("call classifier: %w", adapters.ErrTimeout), true},
		{"refused is not retryable", adapters.ErrRefused, false},
		{"arbitrary error is not retryable", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapters.Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSetWithoutTokenUsesStaticAdapters(t *testing.T) {
	set := adapters.NewSet(adapters.Settings{}, slog.Default())

	if set.Classifier.Model() != "static-classifier" {
		t.Errorf("classifier model: got %s, want static-classifier", set.Classifier.Model())
	}
	if set.Drafter.Model() != "static-drafter" {
		t.Errorf("drafter model: got %s, want static-drafter", set.Drafter.Model())
	}
	if set.Verifier.Model() != "static-verifier" {
		t.Errorf("verifier model: got %s, want static-verifier", set.Verifier.Model())
	}
}

func TestStaticClassifier(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantIntent classifications.Intent
		wantRisk   classifications.RiskLevel
	}{
		{"allergy mention escalates", "I had an allergic reaction to your serum", classifications.IntentComplaint, classifications.RiskCritical},
		{"refund request", "I want a refund for my order", classifications.IntentDeliveryReturn, classifications.RiskLow},
		{"stockist question", "where can I buy the lip tint?", classifications.IntentWhereToBuy, classifications.RiskLow},
		{"recommendation request", "which shade would you recommend?", classifications.IntentRecommendation, classifications.RiskLow},
		{"unmatched content is unknown", "hello there", classifications.IntentUnknown, classifications.RiskMedium},
	}

	var c adapters.StaticClassifier
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Classify(context.Background(), adapters.Request{Content: tt.content})
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if out.Intent != tt.wantIntent {
				t.Errorf("intent: got %s, want %s", out.Intent, tt.wantIntent)
			}
			if out.RiskLevel != tt.wantRisk {
				t.Errorf("risk: got %s, want %s", out.RiskLevel, tt.wantRisk)
			}
		})
	}
}

func TestStaticClassifierEscalatesAllergy(t *testing.T) {
	var c adapters.StaticClassifier
	out, err := c.Classify(context.Background(), adapters.Request{Content: "allergic reaction"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !out.ShouldEscalate {
		t.Error("allergy content should set should_escalate")
	}
	if len(out.RiskFlags) == 0 || out.RiskFlags[0] != "medical_claim" {
		t.Errorf("risk flags: got %v, want [medical_claim]", out.RiskFlags)
	}
}

func TestStaticVerifierPasses(t *testing.T) {
	var v adapters.StaticVerifier
	out, err := v.Verify(context.Background(), adapters.Request{}, drafts.Output{}, classifications.Output{})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if out.Verdict != drafts.VerdictPass {
		t.Errorf("verdict: got %s, want PASS", out.Verdict)
	}
}
