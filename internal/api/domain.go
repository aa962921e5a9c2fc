package api

import (
	"github.com/JaimeStill/lucid/internal/docclasses"
	"github.com/JaimeStill/lucid/internal/documents"
	"github.com/JaimeStill/lucid/internal/jobs"
	"github.com/JaimeStill/lucid/internal/model"
	"github.com/JaimeStill/lucid/internal/progress"
	"github.com/JaimeStill/lucid/internal/steps"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	DocClasses docclasses.System
	Steps      steps.System
	Documents  documents.System
	Jobs       jobs.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docClassSystem := docclasses.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	stepSystem := steps.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	docSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	invoker := model.New(runtime.Model, runtime.Logger)
	publisher := progress.New(
		runtime.Cache,
		runtime.Engine.ProgressTTLDuration(),
		runtime.Logger,
	)

	jobSystem := jobs.New(
		runtime.Database.Connection(),
		docSystem,
		stepSystem,
		invoker,
		publisher,
		runtime.Engine,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		DocClasses: docClassSystem,
		Steps:      stepSystem,
		Documents:  docSystem,
		Jobs:       jobSystem,
	}
}
