// Package classifications implements the classification domain for Parley.
// It provides types and data access for intent/risk assessments produced by
// the classifier adapter. One classification exists per message per
// processing attempt; retries supersede, they never mutate in place.
package classifications

import (
	"time"

	"github.com/google/uuid"
)

// Intent labels a message's detected purpose.
type Intent string

const (
	IntentAvailability   Intent = "availability"
	IntentRoutineUsage   Intent = "routine_usage"
	IntentShadeColor     Intent = "shade_color"
	IntentDeliveryReturn Intent = "delivery_return"
	IntentComplaint      Intent = "complaint"
	IntentWhereToBuy     Intent = "where_to_buy"
	IntentIngredients    Intent = "ingredients"
	IntentRecommendation Intent = "recommendation"
	IntentSpam           Intent = "spam"
	IntentUnknown        Intent = "unknown"
)

// RiskLevel is an ordered risk assessment: low < medium < high < critical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the ordinal position of the risk level. Unknown levels rank
// above critical so a malformed assessment is never treated as safe.
func (r RiskLevel) Rank() int {
	if rank, ok := riskRank[r]; ok {
		return rank
	}
	return len(riskRank)
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// MaxRisk returns the more severe of the two levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Output is the classifier adapter's assessment of a message, before storage.
type Output struct {
	Intent           Intent    `json:"intent"`
	IntentConfidence float64   `json:"intent_confidence"`
	RiskFlags        []string  `json:"risk_flags"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Language         string    `json:"language"`
	ShouldDM         bool      `json:"should_dm"`
	ShouldEscalate   bool      `json:"should_escalate"`
	Reasoning        string    `json:"reasoning"`
}

// Classification is a stored assessment for one message and attempt.
type Classification struct {
	ID               uuid.UUID `json:"id"`
	MessageID        uuid.UUID `json:"message_id"`
	Attempt          int       `json:"attempt"`
	Intent           Intent    `json:"intent"`
	IntentConfidence float64   `json:"intent_confidence"`
	RiskFlags        []string  `json:"risk_flags"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Language         string    `json:"language"`
	ShouldDM         bool      `json:"should_dm"`
	ShouldEscalate   bool      `json:"should_escalate"`
	Reasoning        string    `json:"reasoning"`
	ModelName        string    `json:"model_name"`
	ClassifiedAt     time.Time `json:"classified_at"`
}

// Output converts the stored classification back into adapter output form.
func (c *Classification) Output() Output {
	return Output{
		Intent:           c.Intent,
		IntentConfidence: c.IntentConfidence,
		RiskFlags:        c.RiskFlags,
		RiskLevel:        c.RiskLevel,
		Language:         c.Language,
		ShouldDM:         c.ShouldDM,
		ShouldEscalate:   c.ShouldEscalate,
		Reasoning:        c.Reasoning,
	}
}
