package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/relay/internal/httpserver/mw"
)

func init() { Register("ops", registerOps) }

// registerOps exposes the operational endpoints behind the host and CIDR allow-lists.
func registerOps(r chi.Router, d deps.Deps) {
	r.Group(func(ops chi.Router) {
		ops.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		ops.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		ops.Get("/healthz", handlers.Healthz(d))
		ops.Get("/readyz", handlers.Readyz(d))
		ops.Get("/infra", handlers.Infra(d))
	})
}
