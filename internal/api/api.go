// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/lucid/internal/config"
	"github.com/JaimeStill/lucid/internal/infrastructure"
	"github.com/JaimeStill/lucid/pkg/middleware"
	"github.com/JaimeStill/lucid/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The returned Domain exposes the systems that require lifecycle registration.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, domain, nil
}
