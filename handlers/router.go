package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterConfig holds everything NewRouter mounts.
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration

	People   *PersonHandler
	Sessions *SessionHandler
	History  *HistoryHandler
	// WebSocket serves /ws; nil leaves the route unmounted.
	WebSocket http.HandlerFunc
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	if cfg.WebSocket != nil {
		// no timeout: the connection lives as long as the screen is open
		r.Get("/ws", cfg.WebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Route("/people", func(r chi.Router) {
			r.Get("/", cfg.People.ListPeople)
			r.Post("/", cfg.People.CreatePerson)
			r.Get("/template", cfg.People.DownloadTemplate)
			r.Post("/import", cfg.People.ImportPeople)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", cfg.People.GetPerson)
				r.Put("/", cfg.People.UpdatePerson)
				r.Delete("/", cfg.People.DeletePerson)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", cfg.History.ListSessions)
			r.Post("/", cfg.Sessions.StartSession)
			r.Post("/export", cfg.History.ExportSessions)
			r.Route("/current", func(r chi.Router) {
				r.Get("/", cfg.Sessions.CurrentSession)
				r.Post("/scans", cfg.Sessions.Scan)
				r.Post("/close", cfg.Sessions.CloseSession)
			})
			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/events", cfg.History.SessionEvents)
				r.Delete("/", cfg.History.DeleteSession)
			})
		})
	})

	return r
}
