package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/pagination"
	"github.com/parleyhq/parley/pkg/query"
	"github.com/parleyhq/parley/pkg/repository"
)

const messageColumns = `id, platform, message_type, thread_id, comment_ref,
	sender_id, sender_username, content, status, degraded, attempts,
	retry_stage, next_attempt_at, received_at, updated_at`

type repo struct {
	db             *sql.DB
	logger         *slog.Logger
	pagination     pagination.Config
	maxContentSize int64
}

// New creates a message repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	maxContentSize int64,
) System {
	return &repo{
		db:             db,
		logger:         logger.With("system", "messages"),
		pagination:     pagination,
		maxContentSize: maxContentSize,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[InboxEntry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Content", "SenderUsername")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	entries := make([]InboxEntry, len(items))
	for i, m := range items {
		entries[i] = InboxEntry{
			Message:           m,
			RequiresAttention: m.PendingApproval(),
		}
	}

	result := pagination.NewPageResult(entries, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Message, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMessage)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (r *repo) Submit(ctx context.Context, cmd SubmitCommand) (*Message, error) {
	if err := r.validate(cmd); err != nil {
		return nil, err
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO messages(platform, message_type, thread_id, comment_ref,
			sender_id, sender_username, content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, messageColumns)

	m, err := repository.QueryOne(ctx, r.db, insertQ, []any{
		cmd.Platform,
		cmd.MessageType,
		cmd.ThreadID,
		cmd.CommentRef,
		cmd.SenderID,
		cmd.SenderUsername,
		cmd.Content,
		StatusReceived,
	}, scanMessage)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("message submitted",
		"id", m.ID,
		"platform", m.Platform,
		"type", m.MessageType,
		"sender", m.SenderID,
	)
	return &m, nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, from, to Status) (*Message, error) {
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s not permitted", ErrStateConflict, from, to)
	}

	transitionQ := fmt.Sprintf(`
		UPDATE messages
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING %s`, messageColumns)

	m, err := repository.QueryOne(ctx, r.db, transitionQ, []any{to, id, from}, scanMessage)
	if err != nil {
		// No row matched id+status: either the message is gone or another
		// actor already moved it. Both surface as a state conflict after a
		// presence check.
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := r.Find(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, fmt.Errorf("%w: expected %s", ErrStateConflict, from)
		}
		return nil, err
	}

	r.logger.Info("message transitioned", "id", id, "from", from, "to", to)
	return &m, nil
}

func (r *repo) ClaimReceived(ctx context.Context, limit int) ([]Message, error) {
	claimQ := fmt.Sprintf(`
		UPDATE messages
		SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM messages
			WHERE status = $2
			ORDER BY received_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, messageColumns)

	claimed, err := repository.QueryMany(ctx, r.db, claimQ,
		[]any{StatusClassifying, StatusReceived, limit}, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("claim received messages: %w", err)
	}
	return claimed, nil
}

func (r *repo) ListDueRetries(ctx context.Context, limit int) ([]Message, error) {
	dueQ := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE status = $1 AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
		ORDER BY next_attempt_at ASC NULLS FIRST
		LIMIT $2`, messageColumns)

	due, err := repository.QueryMany(ctx, r.db, dueQ,
		[]any{StatusRetryPending, limit}, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("list due retries: %w", err)
	}
	return due, nil
}

func (r *repo) MarkDegraded(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE messages SET degraded = TRUE, updated_at = NOW() WHERE id = $1",
		id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Warn("message marked degraded", "id", id)
	return nil
}

func (r *repo) SetRetry(ctx context.Context, id uuid.UUID, from Status, stage string, attempts int, nextAttempt time.Time) error {
	if !CanTransition(from, StatusRetryPending) {
		return fmt.Errorf("%w: %s -> %s not permitted", ErrStateConflict, from, StatusRetryPending)
	}

	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE messages
		SET status = $1, retry_stage = $2, attempts = $3, next_attempt_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6`,
		StatusRetryPending, stage, attempts, nextAttempt, id, from,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: expected %s", ErrStateConflict, from)
		}
		return err
	}

	r.logger.Info("message parked for retry",
		"id", id,
		"stage", stage,
		"attempts", attempts,
		"next_attempt_at", nextAttempt.Format(time.RFC3339),
	)
	return nil
}

func (r *repo) validate(cmd SubmitCommand) error {
	if strings.TrimSpace(cmd.Content) == "" {
		return fmt.Errorf("%w: content required", ErrInvalidInput)
	}
	if r.maxContentSize > 0 && int64(len(cmd.Content)) > r.maxContentSize {
		return fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, r.maxContentSize)
	}
	if cmd.SenderID == "" {
		return fmt.Errorf("%w: sender_id required", ErrInvalidInput)
	}
	if cmd.Platform == "" {
		return fmt.Errorf("%w: platform required", ErrInvalidInput)
	}
	if !cmd.MessageType.Valid() {
		return fmt.Errorf("%w: unknown message_type %q", ErrInvalidInput, cmd.MessageType)
	}
	return nil
}
