package docclasses

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/pkg/pagination"
	"github.com/JaimeStill/lucid/pkg/query"
	"github.com/JaimeStill/lucid/pkg/repository"
)

const classColumns = `id, key, name, description, active, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document class repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "docclasses"),
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
) (*pagination.PageResult[DocumentClass], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Key", "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count document classes: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocumentClass)
	if err != nil {
		return nil, fmt.Errorf("query document classes: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*DocumentClass, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	dc, err := repository.QueryOne(ctx, r.db, q, args, scanDocumentClass)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &dc, nil
}

func (r *repo) FindByKey(ctx context.Context, key string) (*DocumentClass, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Key", normalizeKey(key))

	dc, err := repository.QueryOne(ctx, r.db, q, args, scanDocumentClass)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &dc, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*DocumentClass, error) {
	key := normalizeKey(cmd.Key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO document_classes(key, name, description)
		VALUES ($1, $2, $3)
		RETURNING %s`, classColumns)

	dc, err := repository.QueryOne(ctx, r.db, insertQ,
		[]any{key, cmd.Name, cmd.Description},
		scanDocumentClass,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document class created", "id", dc.ID, "key", dc.Key)
	return &dc, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*DocumentClass, error) {
	updateQ := fmt.Sprintf(`
		UPDATE document_classes
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING %s`, classColumns)

	dc, err := repository.QueryOne(ctx, r.db, updateQ,
		[]any{cmd.Name, cmd.Description, id},
		scanDocumentClass,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document class updated", "id", dc.ID)
	return &dc, nil
}

func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*DocumentClass, error) {
	return r.setActive(ctx, id, true)
}

func (r *repo) Deactivate(ctx context.Context, id uuid.UUID) (*DocumentClass, error) {
	return r.setActive(ctx, id, false)
}

func (r *repo) setActive(ctx context.Context, id uuid.UUID, active bool) (*DocumentClass, error) {
	q := fmt.Sprintf(`
		UPDATE document_classes
		SET active = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, classColumns)

	dc, err := repository.QueryOne(ctx, r.db, q, []any{active, id}, scanDocumentClass)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document class active state changed", "id", dc.ID, "active", active)
	return &dc, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var refs int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM steps WHERE document_class_id = $1", id,
		).Scan(&refs); err != nil {
			return struct{}{}, fmt.Errorf("count step references: %w", err)
		}
		if refs > 0 {
			return struct{}{}, ErrInUse
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM document_classes WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document class deleted", "id", id)
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
