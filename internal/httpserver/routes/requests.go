package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/httpserver/handlers"
)

func init() { Register("requests", registerRequests) }

func registerRequests(r chi.Router, d deps.Deps) {
	r.Route("/api/requests", func(r chi.Router) {
		r.Post("/", handlers.Relay(d))
		r.Get("/", handlers.ListRequests(d))
		r.Get("/{id}", handlers.GetRequest(d))
		r.Delete("/{id}", handlers.DeleteRequest(d))
	})
}
