package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type RouterConfig struct {
	Reservations *ReservationHandler
	Users        *UserHandler
	Auth         *AuthHandler
	Health       *HealthHandler
	Tokens       TokenValidator
	// AuthRequired puts POST and DELETE on /reservations behind a bearer token.
	AuthRequired bool
	Logger       *slog.Logger
	Middleware   []func(http.Handler) http.Handler
}

// APIPrefix mirrors every route under the base path used by the web client.
const APIPrefix = "/api"

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(Authenticate(cfg.Tokens, logger))

	routes := func(r chi.Router) {
		mountRoutes(r, cfg, logger)
	}
	r.Group(routes)
	r.Route(APIPrefix, routes)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		newResponder(logger).writeJSON(w, req, http.StatusNotFound, errorResponse{
			ErrorCode: CodeNotFound,
			Message:   "The requested resource was not found.",
		})
	})

	return r
}

func mountRoutes(r chi.Router, cfg RouterConfig, logger *slog.Logger) {
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Check)
	}

	if h := cfg.Reservations; h != nil {
		guarded := r.With()
		if cfg.AuthRequired {
			guarded = r.With(RequireAuth(logger))
		}

		r.Get("/reservations", h.List)
		r.Get("/reservations.ics", h.Calendar)
		r.Get("/reservations/availability", h.Availability)
		r.Get("/reservations/{id}", h.Get)
		guarded.Post("/reservations", h.Create)
		guarded.Delete("/reservations/{id}", h.Delete)
	}

	if cfg.Users != nil {
		r.Get("/user", cfg.Users.List)
	}

	if cfg.Auth != nil {
		r.Post("/user/login/admin", cfg.Auth.LoginAdmin)
		r.Post("/user/login/faculty", cfg.Auth.LoginFaculty)
	}
}
