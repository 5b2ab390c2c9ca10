package approvals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/dispatch"
	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/pkg/repository"
)

const approvalColumns = `id, message_id, draft_id, approved_by, action,
	edited_text, reason, decided_at`

type repo struct {
	db         *sql.DB
	messages   messages.System
	drafts     drafts.System
	dispatcher dispatch.System
	logger     *slog.Logger
}

// New creates an approval ledger implementing the System interface.
func New(
	db *sql.DB,
	msgs messages.System,
	drafts drafts.System,
	dispatcher dispatch.System,
	logger *slog.Logger,
) System {
	return &repo{
		db:         db,
		messages:   msgs,
		drafts:     drafts,
		dispatcher: dispatcher,
		logger:     logger.With("system", "approvals"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Approval, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}

	msg, err := r.messages.Find(ctx, cmd.MessageID)
	if err != nil {
		return nil, err
	}
	if !msg.PendingApproval() {
		if msg.Status.Terminal() {
			return nil, fmt.Errorf("%w: message already %s", messages.ErrStateConflict, msg.Status)
		}
		return nil, fmt.Errorf("%w: message is %s", ErrNotAwaiting, msg.Status)
	}

	var target *drafts.Draft
	if cmd.DraftID != nil {
		target, err = r.drafts.Find(ctx, *cmd.DraftID)
		if err != nil {
			return nil, err
		}
		if target.MessageID != cmd.MessageID {
			return nil, ErrDraftMismatch
		}
	}

	if cmd.Action == ActionApprove {
		if target == nil {
			return nil, fmt.Errorf("%w: approve requires a draft", ErrValidation)
		}
		if msg.Status == messages.StatusBlocked {
			// Blocked messages carry no releasable suggestion; the
			// operator must edit or escalate.
			return nil, fmt.Errorf("%w: blocked message has no approvable draft", ErrValidation)
		}
	}

	switch cmd.Action {
	case ActionEscalate:
		return r.recordEscalate(ctx, msg, cmd)
	case ActionEdit:
		return r.recordEdit(ctx, msg, cmd)
	default:
		return r.recordApprove(ctx, msg, target, cmd)
	}
}

// recordApprove moves the message toward dispatch with the existing draft text.
func (r *repo) recordApprove(ctx context.Context, msg *messages.Message, target *drafts.Draft, cmd RecordCommand) (*Approval, error) {
	a, err := r.decide(ctx, msg, messages.StatusDispatching, cmd, nil)
	if err != nil {
		return nil, err
	}

	r.deliver(ctx, msg, target)
	return a, nil
}

// recordEdit supersedes the draft with operator-authored text and dispatches
// it without a verification cycle.
func (r *repo) recordEdit(ctx context.Context, msg *messages.Message, cmd RecordCommand) (*Approval, error) {
	a, err := r.decide(ctx, msg, messages.StatusDispatching, cmd, cmd.EditedText)
	if err != nil {
		return nil, err
	}

	operatorDraft, err := r.drafts.CreateOperator(ctx, msg.ID, *cmd.EditedText)
	if err != nil {
		return nil, fmt.Errorf("create operator draft: %w", err)
	}

	r.deliver(ctx, msg, operatorDraft)
	return a, nil
}

// recordEscalate closes the message with no dispatch.
func (r *repo) recordEscalate(ctx context.Context, msg *messages.Message, cmd RecordCommand) (*Approval, error) {
	return r.decide(ctx, msg, messages.StatusResolved, cmd, nil)
}

// decide performs the compare-and-swap transition and ledger insert in one
// transaction. A competing decision loses the CAS and observes
// messages.ErrStateConflict; a duplicate decision on the same draft trips
// the unique draft_id constraint.
func (r *repo) decide(
	ctx context.Context,
	msg *messages.Message,
	to messages.Status,
	cmd RecordCommand,
	editedText *string,
) (*Approval, error) {
	insertQ := fmt.Sprintf(`
		INSERT INTO approvals(message_id, draft_id, approved_by, action, edited_text, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, approvalColumns)

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Approval, error) {
		if err := repository.ExecExpectOne(ctx, tx, `
			UPDATE messages SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3`,
			to, msg.ID, msg.Status,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Approval{}, fmt.Errorf("%w: already resolved", messages.ErrStateConflict)
			}
			return Approval{}, err
		}

		created, err := repository.QueryOne(ctx, tx, insertQ, []any{
			cmd.MessageID,
			cmd.DraftID,
			cmd.ApprovedBy,
			cmd.Action,
			editedText,
			cmd.Reason,
		}, scanApproval)
		if err != nil {
			return Approval{}, repository.MapError(err, ErrNotFound, ErrAlreadyDecided)
		}

		return created, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("decision recorded",
		"id", a.ID,
		"message_id", a.MessageID,
		"draft_id", a.DraftID,
		"action", a.Action,
		"approved_by", a.ApprovedBy,
	)
	return &a, nil
}

// deliver hands the reply to the idempotent dispatcher and advances the
// message to sent. A delivery failure parks the message in retry_pending at
// the dispatch stage so the worker pool resumes it; the decision itself is
// already durable.
func (r *repo) deliver(ctx context.Context, msg *messages.Message, d *drafts.Draft) {
	reply := dispatch.Reply{
		MessageID:   msg.ID,
		DraftID:     d.ID,
		Platform:    msg.Platform,
		ThreadID:    msg.ThreadID,
		CommentRef:  msg.CommentRef,
		RecipientID: msg.SenderID,
		Text:        d.ReplyText,
	}

	if err := r.dispatcher.Deliver(ctx, reply); err != nil {
		r.logger.Error("post-decision dispatch failed",
			"message_id", msg.ID,
			"draft_id", d.ID,
			"error", err,
		)
		if setErr := r.messages.SetRetry(ctx, msg.ID, messages.StatusDispatching, "dispatch", 0, time.Now()); setErr != nil {
			r.logger.Error("park for dispatch retry failed", "message_id", msg.ID, "error", setErr)
		}
		return
	}

	if _, err := r.messages.Transition(ctx, msg.ID, messages.StatusDispatching, messages.StatusSent); err != nil {
		r.logger.Error("post-dispatch transition failed", "message_id", msg.ID, "error", err)
	}
}

func (r *repo) ForDraft(ctx context.Context, draftID uuid.UUID) (*Approval, error) {
	forQ := fmt.Sprintf("SELECT %s FROM approvals WHERE draft_id = $1", approvalColumns)

	a, err := repository.QueryOne(ctx, r.db, forQ, []any{draftID}, scanApproval)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrAlreadyDecided)
	}
	return &a, nil
}

func (r *repo) ForMessage(ctx context.Context, messageID uuid.UUID) ([]Approval, error) {
	forQ := fmt.Sprintf(`
		SELECT %s FROM approvals
		WHERE message_id = $1
		ORDER BY decided_at DESC`, approvalColumns)

	history, err := repository.QueryMany(ctx, r.db, forQ, []any{messageID}, scanApproval)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	return history, nil
}

func validate(cmd RecordCommand) error {
	if !cmd.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, cmd.Action)
	}
	if strings.TrimSpace(cmd.ApprovedBy) == "" {
		return fmt.Errorf("%w: approved_by required", ErrValidation)
	}
	if cmd.Action == ActionEdit && (cmd.EditedText == nil || strings.TrimSpace(*cmd.EditedText) == "") {
		return ErrEditTextMissing
	}
	if cmd.Action == ActionEscalate && (cmd.Reason == nil || strings.TrimSpace(*cmd.Reason) == "") {
		return ErrReasonMissing
	}
	return nil
}
