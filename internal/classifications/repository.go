package classifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/pagination"
	"github.com/parleyhq/parley/pkg/query"
	"github.com/parleyhq/parley/pkg/repository"
)

const classificationColumns = `id, message_id, attempt, intent, intent_confidence,
	risk_flags, risk_level, language, should_dm, should_escalate, reasoning,
	model_name, classified_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a classification repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "classifications"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Classification], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Intent", "Reasoning")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count classifications: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanClassification)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Classification, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Latest(ctx context.Context, messageID uuid.UUID) (*Classification, error) {
	latestQ := fmt.Sprintf(`
		SELECT %s FROM classifications
		WHERE message_id = $1
		ORDER BY attempt DESC
		LIMIT 1`, classificationColumns)

	c, err := repository.QueryOne(ctx, r.db, latestQ, []any{messageID}, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Create(
	ctx context.Context,
	messageID uuid.UUID,
	attempt int,
	out Output,
	modelName string,
) (*Classification, error) {
	flags := out.RiskFlags
	if flags == nil {
		flags = []string{}
	}

	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return nil, fmt.Errorf("marshal risk_flags: %w", err)
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO classifications(message_id, attempt, intent, intent_confidence,
			risk_flags, risk_level, language, should_dm, should_escalate,
			reasoning, model_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, classificationColumns)

	c, err := repository.QueryOne(ctx, r.db, insertQ, []any{
		messageID,
		attempt,
		out.Intent,
		out.IntentConfidence,
		flagsJSON,
		out.RiskLevel,
		out.Language,
		out.ShouldDM,
		out.ShouldEscalate,
		out.Reasoning,
		modelName,
	}, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("message classified",
		"id", c.ID,
		"message_id", messageID,
		"attempt", attempt,
		"intent", c.Intent,
		"confidence", c.IntentConfidence,
		"risk_level", c.RiskLevel,
	)
	return &c, nil
}
