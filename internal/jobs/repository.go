package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/internal/config"
	"github.com/JaimeStill/lucid/internal/documents"
	"github.com/JaimeStill/lucid/internal/progress"
	"github.com/JaimeStill/lucid/internal/steps"
	"github.com/JaimeStill/lucid/pkg/pagination"
	"github.com/JaimeStill/lucid/pkg/query"
	"github.com/JaimeStill/lucid/pkg/repository"
)

const jobColumns = `id, document_id, status, language, seed,
	resolved_class_id, final_output, error, submitted_at, started_at, completed_at`

const recordColumns = `id, job_id, step_id, step_name, phase, position,
	status, attempts, input, output, error, skip_reason, started_at, completed_at`

type repo struct {
	db           *sql.DB
	docs         documents.System
	steps        steps.System
	orchestrator *engine.Orchestrator
	publisher    *progress.Publisher
	cfg          *config.EngineConfig
	logger       *slog.Logger
	pagination   pagination.Config

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	nudge   chan struct{}
}

// New creates a job repository implementing the System interface. It
// internally constructs the engine orchestrator from the provided
// invoker and progress publisher.
func New(
	db *sql.DB,
	docs documents.System,
	stepSys steps.System,
	invoker engine.Invoker,
	publisher *progress.Publisher,
	cfg *config.EngineConfig,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	runner := engine.NewRunner(invoker, cfg.RetryPolicy(), cfg.StepTimeoutDuration(), logger)

	return &repo{
		db:           db,
		docs:         docs,
		steps:        stepSys,
		orchestrator: engine.NewOrchestrator(runner, publisher, cfg.UnresolvedPolicy(), logger),
		publisher:    publisher,
		cfg:          cfg,
		logger:       logger.With("system", "jobs"),
		pagination:   pagination,
		cancels:      make(map[uuid.UUID]context.CancelFunc),
		nudge:        make(chan struct{}, 1),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Status", "Language")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	j, err := repository.QueryOne(ctx, r.db, q, args, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &j, nil
}

func (r *repo) Submit(ctx context.Context, cmd SubmitCommand) (*Job, error) {
	doc, err := r.docs.Find(ctx, cmd.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, cmd.DocumentID)
		}
		return nil, err
	}

	if !doc.HasSourceText() {
		return nil, ErrNoSourceText
	}

	seedJSON, err := json.Marshal(cmd.Seed)
	if err != nil {
		return nil, fmt.Errorf("marshal seed: %w", err)
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO pipeline_jobs(document_id, status, language, seed)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, jobColumns)

	insertArgs := []any{doc.ID, engine.StatusQueued, doc.Language, seedJSON}

	j, err := repository.QueryOne(ctx, r.db, insertQ, insertArgs, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("job submitted",
		"id", j.ID,
		"document_id", j.DocumentID,
		"language", j.Language,
	)

	r.wake()
	return &j, nil
}

// Cancel requests cooperative cancellation. A queued job transitions
// directly to cancelled; a running job has its context cancelled and
// the worker records the terminal state between steps.
func (r *repo) Cancel(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	switch j.Status {
	case engine.StatusQueued:
		cancelQ := fmt.Sprintf(`
			UPDATE pipeline_jobs
			SET status = $1, completed_at = NOW()
			WHERE id = $2 AND status = $3
			RETURNING %s`, jobColumns)

		cancelled, err := repository.QueryOne(ctx, r.db, cancelQ,
			[]any{engine.StatusCancelled, id, engine.StatusQueued},
			scanJob,
		)
		if err != nil {
			// Lost the race with a claiming worker; fall back to
			// cancelling the now-running job.
			if errors.Is(err, sql.ErrNoRows) {
				return r.cancelRunning(ctx, id)
			}
			return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		r.logger.Info("queued job cancelled", "id", id)
		return &cancelled, nil

	case engine.StatusRunning:
		return r.cancelRunning(ctx, id)
	}

	return nil, ErrNotCancelable
}

func (r *repo) cancelRunning(ctx context.Context, id uuid.UUID) (*Job, error) {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()

	if !ok {
		return nil, ErrNotCancelable
	}

	cancel()
	r.logger.Info("running job cancellation requested", "id", id)
	return r.Find(ctx, id)
}

func (r *repo) Records(ctx context.Context, id uuid.UUID) ([]StepRecord, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(
		"SELECT %s FROM step_records WHERE job_id = $1 ORDER BY position",
		recordColumns,
	)

	records, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanStepRecord)
	if err != nil {
		return nil, fmt.Errorf("query step records: %w", err)
	}

	return records, nil
}

func (r *repo) Progress(ctx context.Context, id uuid.UUID) (*engine.ProgressUpdate, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	update, err := r.publisher.Read(ctx, id)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	return update, nil
}

// wake nudges the dispatcher without blocking when a nudge is already
// pending.
func (r *repo) wake() {
	select {
	case r.nudge <- struct{}{}:
	default:
	}
}
