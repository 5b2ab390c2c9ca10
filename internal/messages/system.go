package messages

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/pagination"
)

// System defines the public contract for message store operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[InboxEntry], error)

	Find(ctx context.Context, id uuid.UUID) (*Message, error)
	Submit(ctx context.Context, cmd SubmitCommand) (*Message, error)

	// Transition moves a message from one status to another using optimistic
	// concurrency: it fails with ErrStateConflict when the stored status does
	// not match from. This is the only write path for the status field.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) (*Message, error)

	// ClaimReceived atomically claims up to limit messages in received status,
	// moving each to classifying so no other worker picks them up.
	ClaimReceived(ctx context.Context, limit int) ([]Message, error)

	// ListDueRetries returns retry_pending messages whose backoff window has
	// elapsed. Resumption still goes through Transition, so a competing
	// worker observes ErrStateConflict and abandons.
	ListDueRetries(ctx context.Context, limit int) ([]Message, error)

	MarkDegraded(ctx context.Context, id uuid.UUID) error

	// SetRetry parks a message in retry_pending, recording the stage to
	// resume, the attempt count, and the earliest next attempt time.
	SetRetry(ctx context.Context, id uuid.UUID, from Status, stage string, attempts int, nextAttempt time.Time) error
}
