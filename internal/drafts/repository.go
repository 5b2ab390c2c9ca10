package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a draft repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "drafts"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Draft, error) {
	findQ := fmt.Sprintf("SELECT %s FROM drafts WHERE id = $1", draftColumns)

	d, err := repository.QueryOne(ctx, r.db, findQ, []any{id}, scanDraft)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Active(ctx context.Context, messageID uuid.UUID) (*Draft, error) {
	activeQ := fmt.Sprintf(`
		SELECT %s FROM drafts
		WHERE message_id = $1 AND superseded_by IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, draftColumns)

	d, err := repository.QueryOne(ctx, r.db, activeQ, []any{messageID}, scanDraft)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveDraft
		}
		return nil, err
	}
	return &d, nil
}

func (r *repo) History(ctx context.Context, messageID uuid.UUID) ([]Draft, error) {
	historyQ := fmt.Sprintf(`
		SELECT %s FROM drafts
		WHERE message_id = $1
		ORDER BY created_at DESC`, draftColumns)

	history, err := repository.QueryMany(ctx, r.db, historyQ, []any{messageID}, scanDraft)
	if err != nil {
		return nil, fmt.Errorf("query draft history: %w", err)
	}
	return history, nil
}

func (r *repo) CreateGenerated(
	ctx context.Context,
	messageID uuid.UUID,
	out Output,
	modelName string,
) (*Draft, error) {
	d, err := r.create(ctx, messageID, out, SourceGenerated)
	if err != nil {
		return nil, err
	}

	r.logger.Info("draft generated",
		"id", d.ID,
		"message_id", messageID,
		"confidence", d.Confidence,
		"model", modelName,
	)
	return d, nil
}

func (r *repo) CreateOperator(ctx context.Context, messageID uuid.UUID, replyText string) (*Draft, error) {
	out := Output{
		ReplyText:  replyText,
		Confidence: 1.0,
	}

	d, err := r.create(ctx, messageID, out, SourceOperator)
	if err != nil {
		return nil, err
	}

	r.logger.Info("operator draft recorded", "id", d.ID, "message_id", messageID)
	return d, nil
}

func (r *repo) PromoteRewrite(ctx context.Context, draftID uuid.UUID, rewritten string) (*Draft, error) {
	original, err := r.Find(ctx, draftID)
	if err != nil {
		return nil, err
	}

	out := Output{
		ReplyText:            rewritten,
		AskDMQuestion:        original.AskDMQuestion,
		SuggestedProducts:    original.SuggestedProducts,
		SuggestedInfluencers: original.SuggestedInfluencers,
		Citations:            original.Citations,
		Confidence:           original.Confidence,
	}

	d, err := r.create(ctx, original.MessageID, out, SourceGenerated)
	if err != nil {
		return nil, err
	}

	r.logger.Info("rewrite promoted",
		"id", d.ID,
		"message_id", original.MessageID,
		"superseded", draftID,
	)
	return d, nil
}

// create inserts a new draft and supersedes the previously active one in a
// single transaction, preserving the one-active-draft invariant.
func (r *repo) create(ctx context.Context, messageID uuid.UUID, out Output, source Source) (*Draft, error) {
	products := out.SuggestedProducts
	if products == nil {
		products = []Product{}
	}
	influencers := out.SuggestedInfluencers
	if influencers == nil {
		influencers = []string{}
	}
	citations := out.Citations
	if citations == nil {
		citations = []Citation{}
	}

	productsJSON, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("marshal suggested_products: %w", err)
	}
	influencersJSON, err := json.Marshal(influencers)
	if err != nil {
		return nil, fmt.Errorf("marshal suggested_influencers: %w", err)
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return nil, fmt.Errorf("marshal citations: %w", err)
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO drafts(message_id, reply_text, ask_dm_question,
			suggested_products, suggested_influencers, citations,
			confidence, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, draftColumns)

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Draft, error) {
		created, err := repository.QueryOne(ctx, tx, insertQ, []any{
			messageID,
			out.ReplyText,
			out.AskDMQuestion,
			productsJSON,
			influencersJSON,
			citationsJSON,
			out.Confidence,
			source,
		}, scanDraft)
		if err != nil {
			return Draft{}, fmt.Errorf("insert draft: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE drafts SET superseded_by = $1
			WHERE message_id = $2 AND id <> $1 AND superseded_by IS NULL`,
			created.ID, messageID,
		); err != nil {
			return Draft{}, fmt.Errorf("supersede previous drafts: %w", err)
		}

		return created, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &d, nil
}

func (r *repo) Verify(
	ctx context.Context,
	draftID uuid.UUID,
	out VerificationOutput,
	modelName string,
) (*Verification, error) {
	d, err := r.Find(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.Source != SourceGenerated {
		return nil, ErrNotGenerated
	}

	issues := out.Issues
	if issues == nil {
		issues = []Issue{}
	}

	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("marshal issues: %w", err)
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO verifications(draft_id, verdict, issues, rewritten_text,
			reasoning, model_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, verificationColumns)

	v, err := repository.QueryOne(ctx, r.db, insertQ, []any{
		draftID,
		out.Verdict,
		issuesJSON,
		out.RewrittenText,
		out.Reasoning,
		modelName,
	}, scanVerification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrAlreadyVerified)
	}

	r.logger.Info("draft verified",
		"id", v.ID,
		"draft_id", draftID,
		"verdict", v.Verdict,
		"issues", len(v.Issues),
	)
	return &v, nil
}

func (r *repo) VerificationFor(ctx context.Context, draftID uuid.UUID) (*Verification, error) {
	forQ := fmt.Sprintf("SELECT %s FROM verifications WHERE draft_id = $1", verificationColumns)

	v, err := repository.QueryOne(ctx, r.db, forQ, []any{draftID}, scanVerification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &v, nil
}
