// Package progress publishes pipeline run progress to the cache so
// clients can poll it without touching the database. Publishing is
// best-effort: cache failures are logged and never affect the run.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/pkg/cache"
)

// ErrNotFound indicates no progress entry exists for the run. The
// entry may have expired or the run may never have started.
var ErrNotFound = errors.New("progress not found")

// Publisher writes run progress snapshots to the cache with a TTL.
type Publisher struct {
	cache  cache.System
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Publisher over the given cache system.
func New(c cache.System, ttl time.Duration, logger *slog.Logger) *Publisher {
	return &Publisher{
		cache:  c,
		ttl:    ttl,
		logger: logger.With("system", "progress"),
	}
}

var _ engine.ProgressPublisher = (*Publisher)(nil)

// Publish stores the update under the run's progress key. Failures
// are swallowed after logging.
func (p *Publisher) Publish(ctx context.Context, update engine.ProgressUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		p.logger.Warn("marshal progress update failed", "run_id", update.RunID, "error", err)
		return
	}

	if err := p.cache.Set(ctx, key(update.RunID), data, p.ttl); err != nil {
		p.logger.Warn("publish progress failed", "run_id", update.RunID, "error", err)
	}
}

// Read returns the latest published progress for a run. Returns
// ErrNotFound when no entry exists.
func (p *Publisher) Read(ctx context.Context, runID uuid.UUID) (*engine.ProgressUpdate, error) {
	data, err := p.cache.Get(ctx, key(runID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read progress: %w", err)
	}

	var update engine.ProgressUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}

	return &update, nil
}

// Clear removes the progress entry for a run. Failures are swallowed
// after logging.
func (p *Publisher) Clear(ctx context.Context, runID uuid.UUID) {
	if err := p.cache.Delete(ctx, key(runID)); err != nil {
		p.logger.Warn("clear progress failed", "run_id", runID, "error", err)
	}
}

func key(runID uuid.UUID) string {
	return "progress:" + runID.String()
}
