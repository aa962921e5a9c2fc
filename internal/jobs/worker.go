package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/pkg/lifecycle"
	"github.com/JaimeStill/lucid/pkg/repository"
)

// pollInterval backstops the nudge channel so jobs submitted by other
// instances are still picked up.
const pollInterval = 5 * time.Second

// persistTimeout bounds the terminal-state write, which must complete
// even when the run's context has been cancelled.
const persistTimeout = 30 * time.Second

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting job workers", "workers", r.cfg.Workers)

	var inflight sync.WaitGroup

	lc.OnStartup(func() {
		if err := r.requeueOrphans(lc.Context()); err != nil {
			r.logger.Error("orphan requeue failed", "error", err)
		}

		go r.dispatch(lc.Context(), &inflight)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		inflight.Wait()
		r.logger.Info("job workers drained")
	})

	return nil
}

// requeueOrphans returns jobs left in running state by an unclean
// shutdown to the queue so they execute again from the start.
func (r *repo) requeueOrphans(ctx context.Context) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pipeline_jobs
		SET status = $1, started_at = NULL
		WHERE status = $2`,
		engine.StatusQueued, engine.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("requeue orphaned jobs: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		r.logger.Warn("requeued orphaned jobs", "count", n)
	}
	return nil
}

// dispatch claims queued jobs and executes each on its own goroutine,
// bounded by a weighted semaphore. Steps within a job stay sequential;
// only distinct jobs run concurrently.
func (r *repo) dispatch(ctx context.Context, inflight *sync.WaitGroup) {
	sem := semaphore.NewWeighted(int64(r.cfg.Workers))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.nudge:
		case <-ticker.C:
		}

		for {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}

			job, err := r.claim(ctx)
			if err != nil {
				sem.Release(1)
				if !errors.Is(err, sql.ErrNoRows) && ctx.Err() == nil {
					r.logger.Error("job claim failed", "error", err)
				}
				break
			}

			inflight.Add(1)
			go func() {
				defer inflight.Done()
				defer sem.Release(1)
				r.execute(ctx, job)
			}()
		}
	}
}

// claim atomically transitions the oldest queued job to running.
// SKIP LOCKED keeps concurrent claimers from blocking on each other.
func (r *repo) claim(ctx context.Context) (*Job, error) {
	claimQ := fmt.Sprintf(`
		UPDATE pipeline_jobs
		SET status = $1, started_at = NOW()
		WHERE id = (
			SELECT id FROM pipeline_jobs
			WHERE status = $2
			ORDER BY submitted_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, jobColumns)

	j, err := repository.QueryOne(ctx, r.db, claimQ,
		[]any{engine.StatusRunning, engine.StatusQueued},
		scanJob,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *repo) execute(ctx context.Context, job *Job) {
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeoutDuration())
	defer cancel()

	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.cancels, job.ID)
		r.mu.Unlock()
	}()

	run, err := r.buildRun(runCtx, job)
	if err != nil {
		r.logger.Error("job setup failed", "id", job.ID, "error", err)
		r.persistFailure(job.ID, err)
		return
	}

	result := r.orchestrator.Execute(runCtx, *run)

	if err := r.persistResult(job.ID, result); err != nil {
		r.logger.Error("job result persistence failed", "id", job.ID, "error", err)
		return
	}

	r.logger.Info("job finished",
		"id", job.ID,
		"status", result.Status,
		"records", len(result.Records),
		"elapsed", result.Elapsed,
	)
}

// buildRun assembles the engine inputs for a job: the enabled step
// snapshot, the active class set, and the initial context seeded with
// the document's source text plus any submission seed values.
func (r *repo) buildRun(ctx context.Context, job *Job) (*engine.Run, error) {
	doc, err := r.docs.Find(ctx, job.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if !doc.HasSourceText() {
		return nil, ErrNoSourceText
	}

	engineSteps, classes, err := r.steps.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	seed := map[string]any{
		"document_id": doc.ID.String(),
		"filename":    doc.Filename,
		"source_text": *doc.SourceText,
		"language":    job.Language,
	}
	for k, v := range job.Seed {
		seed[k] = v
	}

	return &engine.Run{
		ID:       job.ID,
		Steps:    engineSteps,
		Classes:  classes,
		Language: job.Language,
		Seed:     seed,
	}, nil
}

// persistResult writes the terminal job state and its step records in
// one transaction. It uses a fresh context so a cancelled run still
// lands in the database.
func (r *repo) persistResult(jobID uuid.UUID, result *engine.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	outputJSON, err := json.Marshal(result.FinalOutput)
	if err != nil {
		return fmt.Errorf("marshal final_output: %w", err)
	}

	var resolvedID *uuid.UUID
	if result.ResolvedClass != nil {
		resolvedID = &result.ResolvedClass.ID
	}

	var errText *string
	if result.Failure != nil {
		msg := result.Failure.Error()
		errText = &msg
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(ctx, tx, `
			UPDATE pipeline_jobs
			SET status = $1, resolved_class_id = $2, final_output = $3,
				error = $4, completed_at = NOW()
			WHERE id = $5`,
			result.Status, resolvedID, outputJSON, errText, jobID,
		); err != nil {
			return struct{}{}, fmt.Errorf("update job: %w", err)
		}

		for _, rec := range result.Records {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO step_records(
					job_id, step_id, step_name, phase, position, status,
					attempts, input, output, error, skip_reason,
					started_at, completed_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				jobID, rec.StepID, rec.StepName, rec.Phase, rec.Position,
				rec.Status, rec.Attempts, rec.Input, rec.Output, rec.Error,
				rec.SkipReason, rec.StartedAt, rec.CompletedAt,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert step record: %w", err)
			}
		}

		return struct{}{}, nil
	})

	return err
}

// persistFailure marks a job failed before any steps ran.
func (r *repo) persistFailure(jobID uuid.UUID, failure error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg := failure.Error()
	if _, err := r.db.ExecContext(ctx, `
		UPDATE pipeline_jobs
		SET status = $1, error = $2, completed_at = NOW()
		WHERE id = $3`,
		engine.StatusFailed, msg, jobID,
	); err != nil {
		r.logger.Error("job failure persistence failed", "id", jobID, "error", err)
	}
}
