package approvals

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for the approval ledger.
type System interface {
	Handler() *Handler

	// Record validates and applies one human decision. The underlying
	// message transition is compare-and-swap guarded: a second concurrent
	// decision on the same draft fails with messages.ErrStateConflict,
	// surfaced to the operator as "already resolved".
	Record(ctx context.Context, cmd RecordCommand) (*Approval, error)

	// ForDraft returns the decision recorded for a draft, if any.
	ForDraft(ctx context.Context, draftID uuid.UUID) (*Approval, error)

	// ForMessage returns all decisions recorded against a message,
	// newest first.
	ForMessage(ctx context.Context, messageID uuid.UUID) ([]Approval, error)

	// Metrics aggregates decision quality over the trailing window.
	Metrics(ctx context.Context, days int) (*Metrics, error)
}
