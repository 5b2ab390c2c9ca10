package classifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/pagination"
)

// System defines the public contract for classification domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Classification], error)

	Find(ctx context.Context, id uuid.UUID) (*Classification, error)

	// Latest returns the classification for the message's most recent
	// processing attempt.
	Latest(ctx context.Context, messageID uuid.UUID) (*Classification, error)

	// Create stores a new classification for the given attempt. Earlier
	// attempts remain as history; they are superseded, never overwritten.
	Create(ctx context.Context, messageID uuid.UUID, attempt int, out Output, modelName string) (*Classification, error)
}
