package router

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chat-relay/internal/handlers"
	"chat-relay/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	limiter middleware.Limiter,
	staticFS fs.FS,
	allowedOrigin string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)

	// Health check
	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(allowedOrigin))

		r.Route("/chat", func(r chi.Router) {
			if limiter != nil {
				r.Use(middleware.RateLimit(limiter, logger))
			}
			r.Post("/", chatHandler.Chat)
		})
	})

	// Browser UI
	if staticFS != nil {
		r.Handle("/*", http.FileServer(http.FS(staticFS)))
	}

	return r
}
