package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/xo/internal/siteservice"
)

// NewRouter creates a chi router with all introspection routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *siteservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)

	r.Get("/graph/documents", h.Documents)
	r.Get("/graph/dependents", h.Dependents)
	r.Get("/graph/dependencies", h.Dependencies)

	r.Post("/rebuild", h.Rebuild)

	return r
}
