package triage_test

import (
	"testing"

	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/triage"
)

func pass() *drafts.VerificationOutput {
	return &drafts.VerificationOutput{Verdict: drafts.VerdictPass}
}

func classification(intent classifications.Intent, risk classifications.RiskLevel, confidence float64) classifications.Output {
	return classifications.Output{
		Intent:           intent,
		IntentConfidence: confidence,
		RiskLevel:        risk,
	}
}

func TestDecide(t *testing.T) {
	policy := triage.DefaultPolicy()

	rewritten := "rewritten"

	tests := []struct {
		name string
		c    classifications.Output
		v    *drafts.VerificationOutput
		want triage.Outcome
	}{
		{
			name: "confident safe intent with pass goes autopilot",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.92),
			v:    pass(),
			want: triage.Autopilot,
		},
		{
			name: "confidence below threshold goes hitl",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.80),
			v:    pass(),
			want: triage.HITL,
		},
		{
			name: "confidence exactly at threshold goes autopilot",
			c:    classification(classifications.IntentAvailability, classifications.RiskLow, 0.85),
			v:    pass(),
			want: triage.Autopilot,
		},
		{
			name: "unsafe intent never autopilots",
			c:    classification(classifications.IntentComplaint, classifications.RiskLow, 0.99),
			v:    pass(),
			want: triage.HITL,
		},
		{
			name: "high risk goes hitl regardless of confidence",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskHigh, 0.99),
			v:    pass(),
			want: triage.HITL,
		},
		{
			name: "medium risk misses the low-risk autopilot rule",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskMedium, 0.99),
			v:    pass(),
			want: triage.HITL,
		},
		{
			name: "escalate verdict without critical issue goes hitl",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.99),
			v: &drafts.VerificationOutput{
				Verdict: drafts.VerdictEscalate,
				Issues: []drafts.Issue{
					{Type: drafts.IssueTone, Severity: drafts.SeverityMajor},
				},
			},
			want: triage.HITL,
		},
		{
			name: "escalate verdict with critical issue blocks",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.99),
			v: &drafts.VerificationOutput{
				Verdict: drafts.VerdictEscalate,
				Issues: []drafts.Issue{
					{Type: drafts.IssueCompliance, Severity: drafts.SeverityCritical},
				},
			},
			want: triage.Block,
		},
		{
			name: "rewrite verdict goes hitl",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.99),
			v: &drafts.VerificationOutput{
				Verdict:       drafts.VerdictRewrite,
				RewrittenText: &rewritten,
			},
			want: triage.HITL,
		},
		{
			name: "critical risk flag forces hitl",
			c: classifications.Output{
				Intent:           classifications.IntentWhereToBuy,
				IntentConfidence: 0.99,
				RiskLevel:        classifications.RiskLow,
				RiskFlags:        []string{"medical_claim"},
			},
			v:    pass(),
			want: triage.HITL,
		},
		{
			name: "classifier escalation signal forces hitl",
			c: classifications.Output{
				Intent:           classifications.IntentWhereToBuy,
				IntentConfidence: 0.99,
				RiskLevel:        classifications.RiskLow,
				ShouldEscalate:   true,
			},
			v:    pass(),
			want: triage.HITL,
		},
		{
			name: "nil verification never autopilots",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.99),
			v:    nil,
			want: triage.HITL,
		},
		{
			name: "unknown risk level treated as severe",
			c:    classification(classifications.IntentWhereToBuy, classifications.RiskLevel("bogus"), 0.99),
			v:    pass(),
			want: triage.HITL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Decide(tt.c, tt.v); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	policy := triage.DefaultPolicy()
	c := classification(classifications.IntentAvailability, classifications.RiskLow, 0.91)
	v := pass()

	first := policy.Decide(c, v)
	for i := 0; i < 100; i++ {
		if got := policy.Decide(c, v); got != first {
			t.Fatalf("decision changed on replay: %v then %v", first, got)
		}
	}
}

func TestForceHITLDisablesAutopilot(t *testing.T) {
	policy := triage.DefaultPolicy()
	policy.ForceHITL = true

	c := classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.99)
	if got := policy.Decide(c, pass()); got != triage.HITL {
		t.Errorf("Decide() with ForceHITL = %v, want HITL", got)
	}
}

func TestCanAutopilotMatchesDecide(t *testing.T) {
	policy := triage.DefaultPolicy()
	c := classification(classifications.IntentWhereToBuy, classifications.RiskLow, 0.95)

	if !policy.CanAutopilot(c, pass()) {
		t.Error("CanAutopilot should be true for autopilot decision")
	}
	if policy.RequiresHITL(c, pass()) {
		t.Error("RequiresHITL should be false for autopilot decision")
	}
}
