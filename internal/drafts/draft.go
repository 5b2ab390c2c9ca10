// Package drafts implements the draft and verification domain for Parley.
// A draft is a candidate reply produced by the generator (or authored by an
// operator on edit); a verification is the independent compliance judgment
// on a generated draft. A message accumulates drafts across edit and retry
// cycles but has exactly one active draft at any time.
package drafts

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies who authored a draft.
type Source string

const (
	// SourceGenerated marks a draft produced by the generator adapter.
	SourceGenerated Source = "generated"
	// SourceOperator marks a draft authored by a human during an edit action.
	// Operator drafts are trusted and skip the verification cycle.
	SourceOperator Source = "operator"
)

// Product is a suggested product reference attached to a draft.
type Product struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Reason   string `json:"reason"`
}

// Citation references an internal knowledge document backing a draft claim.
type Citation struct {
	Source  string `json:"source"`
	Extract string `json:"extract"`
	DocID   int    `json:"doc_id"`
}

// Output is the generator adapter's candidate reply, before storage.
type Output struct {
	ReplyText            string     `json:"reply_text"`
	AskDMQuestion        *string    `json:"ask_dm_question"`
	SuggestedProducts    []Product  `json:"suggested_products"`
	SuggestedInfluencers []string   `json:"suggested_influencers"`
	Citations            []Citation `json:"citations_internal"`
	Confidence           float64    `json:"confidence"`
}

// Draft is a stored candidate reply for a message.
type Draft struct {
	ID                   uuid.UUID  `json:"id"`
	MessageID            uuid.UUID  `json:"message_id"`
	ReplyText            string     `json:"reply_text"`
	AskDMQuestion        *string    `json:"ask_dm_question"`
	SuggestedProducts    []Product  `json:"suggested_products"`
	SuggestedInfluencers []string   `json:"suggested_influencers"`
	Citations            []Citation `json:"citations_internal"`
	Confidence           float64    `json:"confidence"`
	Source               Source     `json:"source"`
	SupersededBy         *uuid.UUID `json:"superseded_by"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Active reports whether the draft is the message's current candidate.
func (d *Draft) Active() bool {
	return d.SupersededBy == nil
}

// Output reconstructs the adapter-level candidate from a stored draft.
func (d *Draft) Output() Output {
	return Output{
		ReplyText:            d.ReplyText,
		AskDMQuestion:        d.AskDMQuestion,
		SuggestedProducts:    d.SuggestedProducts,
		SuggestedInfluencers: d.SuggestedInfluencers,
		Citations:            d.Citations,
		Confidence:           d.Confidence,
	}
}

// Verdict is the verifier's judgment on a draft.
type Verdict string

const (
	VerdictPass     Verdict = "PASS"
	VerdictRewrite  Verdict = "REWRITE"
	VerdictEscalate Verdict = "ESCALATE"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == VerdictPass || v == VerdictRewrite || v == VerdictEscalate
}

// IssueType categorizes a verification finding.
type IssueType string

const (
	IssueTone       IssueType = "tone"
	IssueCompliance IssueType = "compliance"
	IssueFactual    IssueType = "factual"
	IssueGrammar    IssueType = "grammar"
	IssueLength     IssueType = "length"
)

// IssueSeverity grades a verification finding.
type IssueSeverity string

const (
	SeverityMinor    IssueSeverity = "minor"
	SeverityMajor    IssueSeverity = "major"
	SeverityCritical IssueSeverity = "critical"
)

// Issue is a single finding reported by the verifier.
type Issue struct {
	Type        IssueType     `json:"type"`
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
}

// VerificationOutput is the verifier adapter's judgment, before storage.
// RewrittenText is present iff the verdict is REWRITE.
type VerificationOutput struct {
	Verdict       Verdict `json:"verdict"`
	Issues        []Issue `json:"issues"`
	RewrittenText *string `json:"rewritten_reply_text"`
	Reasoning     string  `json:"reasoning"`
}

// Verification is a stored verifier judgment for one draft.
type Verification struct {
	ID            uuid.UUID `json:"id"`
	DraftID       uuid.UUID `json:"draft_id"`
	Verdict       Verdict   `json:"verdict"`
	Issues        []Issue   `json:"issues"`
	RewrittenText *string   `json:"rewritten_reply_text"`
	Reasoning     string    `json:"reasoning"`
	ModelName     string    `json:"model_name"`
	VerifiedAt    time.Time `json:"verified_at"`
}

// HasCriticalIssue reports whether any finding is critical severity.
func (v *Verification) HasCriticalIssue() bool {
	for _, issue := range v.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
