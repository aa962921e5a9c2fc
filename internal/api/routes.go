package api

import (
	"net/http"

	"github.com/JaimeStill/lucid/internal/config"
	"github.com/JaimeStill/lucid/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.DocClasses.Handler().Routes(),
		domain.Steps.Handler().Routes(),
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Jobs.Handler().Routes(),
	)
}
