package api

import (
	"github.com/JaimeStill/lucid/internal/config"
	"github.com/JaimeStill/lucid/internal/infrastructure"
	"github.com/JaimeStill/lucid/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Model      *config.ModelConfig
	Engine     *config.EngineConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Cache:     infra.Cache,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Model:      &cfg.Model,
		Engine:     &cfg.Engine,
	}
}
