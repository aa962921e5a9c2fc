package steps

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/pkg/pagination"
	"github.com/JaimeStill/lucid/pkg/query"
	"github.com/JaimeStill/lucid/pkg/repository"
)

const pgForeignKeyCode = "23503"

const stepColumns = `id, name, step_order, enabled, document_class_id,
	post_branching, branching, branching_field, source_language, required,
	required_context, stop_conditions, prompt_template, output_variable,
	max_attempts, timeout_seconds, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a step repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "steps"),
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
) (*pagination.PageResult[Step], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "PromptTemplate", "OutputVariable")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count steps: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanStep)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Step, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	st, err := repository.QueryOne(ctx, r.db, q, args, scanStep)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &st, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Step, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	contextJSON, conditionsJSON, err := marshalRules(cmd.RequiredContext, cmd.StopConditions)
	if err != nil {
		return nil, err
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO steps(
			name, step_order, document_class_id, post_branching,
			branching, branching_field, source_language, required,
			required_context, stop_conditions, prompt_template,
			output_variable, max_attempts, timeout_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING %s`, stepColumns)

	insertArgs := []any{
		cmd.Name, cmd.Order, cmd.DocumentClassID, cmd.PostBranching,
		cmd.Branching, cmd.BranchingField, cmd.SourceLanguage, cmd.Required,
		contextJSON, conditionsJSON, cmd.PromptTemplate,
		cmd.OutputVariable, cmd.MaxAttempts, cmd.TimeoutSeconds,
	}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Step, error) {
		if cmd.Branching {
			if err := r.ensureSingleBranching(ctx, tx, uuid.Nil); err != nil {
				return Step{}, err
			}
		}

		created, err := repository.QueryOne(ctx, tx, insertQ, insertArgs, scanStep)
		if err != nil {
			return Step{}, err
		}
		return created, nil
	})

	if err != nil {
		return nil, mapStepError(err)
	}

	r.logger.Info("step created",
		"id", st.ID,
		"name", st.Name,
		"order", st.Order,
		"branching", st.Branching,
	)
	return &st, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Step, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	contextJSON, conditionsJSON, err := marshalRules(cmd.RequiredContext, cmd.StopConditions)
	if err != nil {
		return nil, err
	}

	updateQ := fmt.Sprintf(`
		UPDATE steps
		SET name = $1, step_order = $2, document_class_id = $3,
			post_branching = $4, branching = $5, branching_field = $6,
			source_language = $7, required = $8, required_context = $9,
			stop_conditions = $10, prompt_template = $11,
			output_variable = $12, max_attempts = $13,
			timeout_seconds = $14, updated_at = NOW()
		WHERE id = $15
		RETURNING %s`, stepColumns)

	updateArgs := []any{
		cmd.Name, cmd.Order, cmd.DocumentClassID,
		cmd.PostBranching, cmd.Branching, cmd.BranchingField,
		cmd.SourceLanguage, cmd.Required, contextJSON,
		conditionsJSON, cmd.PromptTemplate,
		cmd.OutputVariable, cmd.MaxAttempts,
		cmd.TimeoutSeconds, id,
	}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Step, error) {
		if cmd.Branching {
			if err := r.ensureSingleBranching(ctx, tx, id); err != nil {
				return Step{}, err
			}
		}

		updated, err := repository.QueryOne(ctx, tx, updateQ, updateArgs, scanStep)
		if err != nil {
			return Step{}, err
		}
		return updated, nil
	})

	if err != nil {
		return nil, mapStepError(err)
	}

	r.logger.Info("step updated", "id", st.ID, "name", st.Name)
	return &st, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM steps WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("step deleted", "id", id)
	return nil
}

func (r *repo) Enable(ctx context.Context, id uuid.UUID) (*Step, error) {
	enableQ := fmt.Sprintf(`
		UPDATE steps
		SET enabled = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, stepColumns)

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Step, error) {
		var branching bool
		if err := tx.QueryRowContext(ctx,
			"SELECT branching FROM steps WHERE id = $1", id,
		).Scan(&branching); err != nil {
			return Step{}, err
		}

		if branching {
			if err := r.ensureSingleBranching(ctx, tx, id); err != nil {
				return Step{}, err
			}
		}

		enabled, err := repository.QueryOne(ctx, tx, enableQ, []any{id}, scanStep)
		if err != nil {
			return Step{}, err
		}
		return enabled, nil
	})

	if err != nil {
		return nil, mapStepError(err)
	}

	r.logger.Info("step enabled", "id", st.ID)
	return &st, nil
}

func (r *repo) Disable(ctx context.Context, id uuid.UUID) (*Step, error) {
	disableQ := fmt.Sprintf(`
		UPDATE steps
		SET enabled = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, stepColumns)

	st, err := repository.QueryOne(ctx, r.db, disableQ, []any{id}, scanStep)
	if err != nil {
		return nil, mapStepError(err)
	}

	r.logger.Info("step disabled", "id", st.ID)
	return &st, nil
}

func (r *repo) Snapshot(ctx context.Context) ([]engine.Step, []engine.DocumentClass, error) {
	stepsQ := fmt.Sprintf(
		"SELECT %s FROM steps WHERE enabled ORDER BY step_order, id",
		stepColumns,
	)

	rows, err := repository.QueryMany(ctx, r.db, stepsQ, nil, scanStep)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot steps: %w", err)
	}

	engineSteps := make([]engine.Step, 0, len(rows))
	for _, st := range rows {
		engineSteps = append(engineSteps, st.ToEngine())
	}

	classesQ := "SELECT id, key, name FROM document_classes WHERE active ORDER BY key"
	classes, err := repository.QueryMany(ctx, r.db, classesQ, nil,
		func(s repository.Scanner) (engine.DocumentClass, error) {
			var dc engine.DocumentClass
			err := s.Scan(&dc.ID, &dc.Key, &dc.Name)
			return dc, err
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot document classes: %w", err)
	}

	return engineSteps, classes, nil
}

// ensureSingleBranching enforces at most one enabled branching step.
// The exclude ID lets updates re-save the current branching step.
func (r *repo) ensureSingleBranching(ctx context.Context, tx *sql.Tx, exclude uuid.UUID) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM steps WHERE branching AND enabled AND id <> $1",
		exclude,
	).Scan(&count); err != nil {
		return fmt.Errorf("count branching steps: %w", err)
	}

	if count > 0 {
		return ErrBranchingExists
	}
	return nil
}

func marshalRules(
	requiredContext []string,
	stopConditions []engine.StopCondition,
) ([]byte, []byte, error) {
	if requiredContext == nil {
		requiredContext = []string{}
	}
	if stopConditions == nil {
		stopConditions = []engine.StopCondition{}
	}

	contextJSON, err := json.Marshal(requiredContext)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal required_context: %w", err)
	}

	conditionsJSON, err := json.Marshal(stopConditions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal stop_conditions: %w", err)
	}

	return contextJSON, conditionsJSON, nil
}

func mapStepError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyCode {
		return ErrUnknownClass
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}
