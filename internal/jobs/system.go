package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/pkg/lifecycle"
	"github.com/JaimeStill/lucid/pkg/pagination"
)

// System defines the public contract for job domain operations.
type System interface {
	Handler() *Handler

	// Start registers the worker pool with the lifecycle coordinator:
	// a startup hook that requeues orphaned running jobs and launches
	// the dispatcher, and a shutdown hook that drains in-flight runs.
	Start(lc *lifecycle.Coordinator) error

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	Submit(ctx context.Context, cmd SubmitCommand) (*Job, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Job, error)
	Records(ctx context.Context, id uuid.UUID) ([]StepRecord, error)
	Progress(ctx context.Context, id uuid.UUID) (*engine.ProgressUpdate, error)
}
