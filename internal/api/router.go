package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires every endpoint. allowedOrigins feeds the CORS policy.
// Sessions are addressed by id in the path, never by cookie, so CORS
// credentials stay off and "*" cannot reflect arbitrary origins.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", h.Overview)
		r.Get("/suggest", h.Suggest)
		r.Get("/stops", h.Stops)
		r.Get("/recent", h.Recent)

		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Put("/query", h.SetQuery)
			r.Post("/cursor", h.MoveCursor)
			r.Post("/confirm", h.Confirm)
			r.Post("/select", h.Select)
			r.Get("/waypoints", h.Waypoints)
		})
	})

	return r
}
