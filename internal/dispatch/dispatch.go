// Package dispatch delivers approved or autopiloted replies back to the
// originating platform. Delivery is idempotency-keyed on (message_id,
// draft_id): retrying a dispatch sends at most once.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotDelivered indicates the platform rejected or never acknowledged the send.
var ErrNotDelivered = errors.New("reply not delivered")

// Reply is the outbound payload handed to a Sender.
type Reply struct {
	MessageID   uuid.UUID `json:"message_id"`
	DraftID     uuid.UUID `json:"draft_id"`
	Platform    string    `json:"platform"`
	ThreadID    *string   `json:"thread_id"`
	CommentRef  *string   `json:"comment_ref"`
	RecipientID string    `json:"recipient_id"`
	Text        string    `json:"text"`
}

// Record is the stored dispatch attempt for one (message, draft) pair.
type Record struct {
	ID          uuid.UUID  `json:"id"`
	MessageID   uuid.UUID  `json:"message_id"`
	DraftID     uuid.UUID  `json:"draft_id"`
	Delivered   bool       `json:"delivered"`
	AttemptedAt time.Time  `json:"attempted_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// Sender performs the actual platform delivery. Implementations carry
// their own transport-level retry policy; idempotency lives above them.
type Sender interface {
	Send(ctx context.Context, reply Reply) error
}

// System is the idempotent dispatch contract consumed by the orchestrator
// and the approval ledger.
type System interface {
	// Deliver sends the reply at most once per (message, draft) pair.
	// A repeat call for an already-claimed pair returns without sending.
	Deliver(ctx context.Context, reply Reply) error
}
