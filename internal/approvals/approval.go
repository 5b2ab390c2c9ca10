// Package approvals implements the approval ledger for Parley: the single
// mutation path for human decisions on drafts. Every decision is recorded
// against the draft it judged; once recorded, the draft and its message
// become immutable history.
package approvals

import (
	"time"

	"github.com/google/uuid"
)

// Action is the operator's decision on a draft.
type Action string

const (
	// ActionApprove ships the draft as written.
	ActionApprove Action = "approve"
	// ActionEdit replaces the draft with operator-authored text, which is
	// trusted and shipped without a verification cycle.
	ActionEdit Action = "edit"
	// ActionEscalate closes the message with no dispatch, recording the
	// reason for the human routing.
	ActionEscalate Action = "escalate"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionEdit || a == ActionEscalate
}

// Approval is the stored record of one human decision. DraftID is nil when
// the decision covered a degraded message that never produced a draft.
type Approval struct {
	ID         uuid.UUID  `json:"id"`
	MessageID  uuid.UUID  `json:"message_id"`
	DraftID    *uuid.UUID `json:"draft_id"`
	ApprovedBy string     `json:"approved_by"`
	Action     Action     `json:"action"`
	EditedText *string    `json:"edited_text"`
	Reason     *string    `json:"reason"`
	DecidedAt  time.Time  `json:"decided_at"`
}

// RecordCommand carries an operator decision into the ledger. DraftID is
// required for approve; edit and escalate accept a nil DraftID on messages
// that failed before drafting.
type RecordCommand struct {
	MessageID  uuid.UUID  `json:"message_id"`
	DraftID    *uuid.UUID `json:"draft_id"`
	ApprovedBy string     `json:"approved_by"`
	Action     Action     `json:"action"`
	EditedText *string    `json:"edited_text"`
	Reason     *string    `json:"reason"`
}
