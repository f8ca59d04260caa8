package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mailnotes/server/internal/http/handlers"
	"github.com/mailnotes/server/internal/middleware"
)

// RouterConfig holds what NewRouter needs besides the handlers.
type RouterConfig struct {
	Resolver    middleware.Resolver
	Logger      *slog.Logger
	CORSOrigins []string
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig, authHandler *handlers.AuthHandler, notesHandler *handlers.NotesHandler) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Session(cfg.Resolver))
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", handlers.HandleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/send-code", authHandler.HandleSendCode)
		r.Post("/verify-code", authHandler.HandleVerifyCode)
		r.Get("/logout", authHandler.HandleLogout)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(middleware.RequireIdentity).Post("/session-duration", authHandler.HandleSessionDuration)
	})

	// Protected routes (require a resolved session)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Get("/me", authHandler.HandleMe)

		r.Route("/api/notes", func(r chi.Router) {
			r.Get("/", notesHandler.HandleList)
			r.Post("/", notesHandler.HandleCreate)
			r.Put("/{id}", notesHandler.HandleUpdate)
			r.Delete("/{id}", notesHandler.HandleDelete)
		})

		r.Post("/api/nota/crear", notesHandler.HandleLegacyCreate)
		r.Post("/api/nota/editar", notesHandler.HandleLegacyUpdate)
		r.Post("/api/nota/borrar", notesHandler.HandleLegacyDelete)
		r.Get("/api/notas/getAllByIdUser", notesHandler.HandleList)
	})

	return r
}
