package docclasses

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/pkg/pagination"
)

// System defines the public contract for document class domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[DocumentClass], error)

	Find(ctx context.Context, id uuid.UUID) (*DocumentClass, error)
	FindByKey(ctx context.Context, key string) (*DocumentClass, error)
	Create(ctx context.Context, cmd CreateCommand) (*DocumentClass, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*DocumentClass, error)
	Activate(ctx context.Context, id uuid.UUID) (*DocumentClass, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*DocumentClass, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
