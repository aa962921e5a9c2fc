package steps

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/pkg/pagination"
)

// System defines the public contract for step domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Step], error)

	Find(ctx context.Context, id uuid.UUID) (*Step, error)
	Create(ctx context.Context, cmd CreateCommand) (*Step, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Step, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Enable(ctx context.Context, id uuid.UUID) (*Step, error)
	Disable(ctx context.Context, id uuid.UUID) (*Step, error)

	// Snapshot loads the enabled step configuration and the active
	// document classes as engine inputs. Runs submitted after a
	// snapshot never observe later configuration edits.
	Snapshot(ctx context.Context) ([]engine.Step, []engine.DocumentClass, error)
}
