package engine

import (
	"context"

	"github.com/google/uuid"
)

// ProgressUpdate is the live state published to the external observer after
// every processed step.
type ProgressUpdate struct {
	RunID       uuid.UUID `json:"run_id"`
	CurrentStep string    `json:"current_step"`
	Completed   int       `json:"completed"`
	Total       int       `json:"total"`
	Phase       Phase     `json:"phase"`
}

// ProgressPublisher reports run progress to an external observer. Publishing
// is best-effort: implementations must swallow delivery failures rather than
// surface them into pipeline control flow.
type ProgressPublisher interface {
	Publish(ctx context.Context, update ProgressUpdate)
}

// NoopPublisher discards all progress updates.
type NoopPublisher struct{}

// Publish implements ProgressPublisher.
func (NoopPublisher) Publish(context.Context, ProgressUpdate) {}
