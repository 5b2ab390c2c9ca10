package drafts

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for draft and verification operations.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*Draft, error)

	// Active returns the message's current non-superseded draft.
	Active(ctx context.Context, messageID uuid.UUID) (*Draft, error)

	// History returns all drafts for a message, newest first.
	History(ctx context.Context, messageID uuid.UUID) ([]Draft, error)

	// CreateGenerated stores a generator-produced draft, superseding any
	// previously active draft for the message in the same transaction.
	CreateGenerated(ctx context.Context, messageID uuid.UUID, out Output, modelName string) (*Draft, error)

	// CreateOperator stores an operator-authored draft (edit action),
	// superseding the previously active draft. Operator drafts never
	// receive a verification.
	CreateOperator(ctx context.Context, messageID uuid.UUID, replyText string) (*Draft, error)

	// PromoteRewrite supersedes the draft with a copy carrying the
	// verifier's rewritten text, so the rewrite is what operators review.
	PromoteRewrite(ctx context.Context, draftID uuid.UUID, rewritten string) (*Draft, error)

	// Verify attaches the verifier's judgment to a generated draft.
	// A draft is verified at most once.
	Verify(ctx context.Context, draftID uuid.UUID, out VerificationOutput, modelName string) (*Verification, error)

	// VerificationFor returns the stored verification for a draft, or
	// ErrNotFound when the draft has none (operator drafts, blocked messages).
	VerificationFor(ctx context.Context, draftID uuid.UUID) (*Verification, error)
}
