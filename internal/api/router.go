package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "prompt-relay/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	app_errors "prompt-relay/internal/errors"
	"prompt-relay/internal/metrics"
)

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(chatHandler *ChatHandler, modelHandler *ModelHandler) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(RequestLogger)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(metrics.Middleware)
	// Recoverer re-panics http.ErrAbortHandler, which the stream relay uses
	// to cut a broken stream.
	r.Use(middleware.Recoverer)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics.Enabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/v1/models", modelHandler.HandleListModels)
	})

	// Chat completions may stream for as long as the provider does, so these
	// routes carry no timeout.
	r.Post("/v1/chat/completions", chatHandler.HandleChatCompletions)
	r.Post("/api/chat/completions", chatHandler.HandleChatCompletions)

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, app_errors.ErrNotFound)
}
