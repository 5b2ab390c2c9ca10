// Package triage implements the release gate for generated replies.
// Decide is a pure function of a classification and a verification: given
// the same inputs it always produces the same outcome, so gating decisions
// are deterministic under replay.
package triage

import (
	"slices"

	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
)

// Outcome is the triage decision for a verified draft.
type Outcome string

const (
	// Autopilot permits dispatch without human review.
	Autopilot Outcome = "AUTOPILOT"
	// HITL routes the draft to an operator for approval.
	HITL Outcome = "HITL"
	// Block withholds the machine-authored draft entirely; the message
	// still surfaces to an operator, but with no suggestion attached.
	Block Outcome = "BLOCK"
)

// Policy holds the thresholds and allowlists consulted by Decide.
type Policy struct {
	// ConfidenceThreshold is the minimum intent confidence for autopilot.
	ConfidenceThreshold float64
	// SafeIntents are the only intents eligible for autopilot.
	SafeIntents []classifications.Intent
	// CriticalFlags force human review regardless of risk level.
	CriticalFlags []string
	// ForceHITL disables autopilot entirely.
	ForceHITL bool
}

// DefaultPolicy returns the policy used when configuration provides none.
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold: 0.85,
		SafeIntents: []classifications.Intent{
			classifications.IntentAvailability,
			classifications.IntentWhereToBuy,
			classifications.IntentDeliveryReturn,
			classifications.IntentRoutineUsage,
		},
		CriticalFlags: []string{
			"medical_claim",
			"allergy",
			"legal_threat",
			"self_harm",
			"minor_safety",
		},
	}
}

// Decide evaluates the gating rules in order; the first match wins.
// A nil verification never reaches autopilot: it means the pipeline could
// not produce a verified draft, so a human must look.
func (p Policy) Decide(c classifications.Output, v *drafts.VerificationOutput) Outcome {
	if v != nil && v.Verdict == drafts.VerdictEscalate {
		if hasCriticalIssue(v.Issues) {
			return Block
		}
		return HITL
	}

	if c.RiskLevel.AtLeast(classifications.RiskHigh) {
		return HITL
	}

	if c.ShouldEscalate {
		return HITL
	}

	if p.hasCriticalFlag(c.RiskFlags) {
		return HITL
	}

	if v != nil && v.Verdict == drafts.VerdictRewrite {
		return HITL
	}

	if p.ForceHITL {
		return HITL
	}

	if v != nil &&
		v.Verdict == drafts.VerdictPass &&
		c.RiskLevel == classifications.RiskLow &&
		c.IntentConfidence >= p.ConfidenceThreshold &&
		p.safeIntent(c.Intent) {
		return Autopilot
	}

	// Conservative default: never autopilot on uncertainty.
	return HITL
}

// RequiresHITL reports whether the decision demands human review.
func (p Policy) RequiresHITL(c classifications.Output, v *drafts.VerificationOutput) bool {
	return p.Decide(c, v) != Autopilot
}

// CanAutopilot reports whether the decision permits unattended dispatch.
func (p Policy) CanAutopilot(c classifications.Output, v *drafts.VerificationOutput) bool {
	return p.Decide(c, v) == Autopilot
}

func (p Policy) safeIntent(intent classifications.Intent) bool {
	return slices.Contains(p.SafeIntents, intent)
}

func (p Policy) hasCriticalFlag(flags []string) bool {
	for _, flag := range flags {
		if slices.Contains(p.CriticalFlags, flag) {
			return true
		}
	}
	return false
}

func hasCriticalIssue(issues []drafts.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == drafts.SeverityCritical {
			return true
		}
	}
	return false
}
