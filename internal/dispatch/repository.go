package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/parleyhq/parley/pkg/repository"
)

type repo struct {
	db     *sql.DB
	sender Sender
	logger *slog.Logger
}

// New creates a dispatch system over the given sender with Postgres-backed
// idempotency claims.
func New(db *sql.DB, sender Sender, logger *slog.Logger) System {
	return &repo{
		db:     db,
		sender: sender,
		logger: logger.With("system", "dispatch"),
	}
}

func (r *repo) Deliver(ctx context.Context, reply Reply) error {
	claimed, err := r.claim(ctx, reply)
	if err != nil {
		return fmt.Errorf("claim dispatch: %w", err)
	}

	if !claimed {
		// Another attempt already owns this (message, draft) pair; the
		// send either happened or is in flight. Nothing more to do.
		r.logger.Info("dispatch already claimed",
			"message_id", reply.MessageID,
			"draft_id", reply.DraftID,
		)
		return nil
	}

	if err := r.sender.Send(ctx, reply); err != nil {
		// Leave the claim undelivered; a later attempt against the same
		// pair is skipped above, so failure handling belongs to the caller.
		r.release(ctx, reply)
		return fmt.Errorf("%w: %w", ErrNotDelivered, err)
	}

	if err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE dispatches SET delivered = TRUE, delivered_at = NOW()
		WHERE message_id = $1 AND draft_id = $2`,
		reply.MessageID, reply.DraftID,
	); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	r.logger.Info("reply dispatched",
		"message_id", reply.MessageID,
		"draft_id", reply.DraftID,
		"platform", reply.Platform,
	)
	return nil
}

// claim inserts the idempotency row; false means the pair was already claimed.
func (r *repo) claim(ctx context.Context, reply Reply) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO dispatches(message_id, draft_id)
		VALUES ($1, $2)
		ON CONFLICT (message_id, draft_id) DO NOTHING`,
		reply.MessageID, reply.DraftID,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// release drops a claim whose send failed so a retry can claim it again.
func (r *repo) release(ctx context.Context, reply Reply) {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM dispatches
		WHERE message_id = $1 AND draft_id = $2 AND delivered = FALSE`,
		reply.MessageID, reply.DraftID,
	); err != nil {
		r.logger.Error("release dispatch claim failed",
			"message_id", reply.MessageID,
			"draft_id", reply.DraftID,
			"error", err,
		)
	}
}
