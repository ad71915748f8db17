package httpapi

import (
	"github.com/MrEthical07/kvauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Init builds the router.
func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/register", h.register)
		r.Put("/login", h.login)
		r.Get("/healthz", h.health)
		r.Handle("/metrics", h.metrics)
	})

	// routes that need a session token
	guard := middleware.Guard(h.engine)
	router.Group(func(r chi.Router) {
		r.Method("GET", "/user", guard(h.getUser))
		r.Method("PATCH", "/update", guard(h.updateUser))
		r.Method("DELETE", "/logout", guard(h.logout))
		r.Method("DELETE", "/delete", guard(h.deleteUser))
	})

	return router
}
