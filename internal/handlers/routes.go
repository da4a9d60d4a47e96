package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"gptodo/internal/logging"
)

// Routes builds the router. allowedOrigins configures CORS for browser clients.
func (h *Handlers) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(h.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/health", h.Health)

	// Every method reaches Mutate so that non-POST requests get its 405 body.
	r.HandleFunc("/api/prompt", h.Mutate)

	if h.mutations != nil {
		r.Get("/api/mutations", h.ListMutations)
	}

	return r
}
