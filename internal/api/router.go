package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Recovery  *mw.Recovery
	RateLimit *mw.RateLimit
	// AdminAuth is nil when no admin password is configured; the admin
	// routes are then not mounted at all.
	AdminAuth *mw.AdminAuth

	HealthHandler http.HandlerFunc
	IngestHandler http.HandlerFunc
	ListIssues    http.HandlerFunc
	GetIssue      http.HandlerFunc
	StatusHandler http.HandlerFunc
	Metrics       http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Identity)
	r.Use(mw.Logger)
	if deps.Recovery != nil {
		r.Use(deps.Recovery.Handler)
	}

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}
		r.Post("/api/v1/errors", orNotImplemented(deps.IngestHandler))
	})

	if deps.AdminAuth != nil {
		r.Group(func(r chi.Router) {
			r.Use(deps.AdminAuth.Authenticate)

			r.Get("/api/v1/admin/issues", orNotImplemented(deps.ListIssues))
			r.Get("/api/v1/admin/issues/{signature}", orNotImplemented(deps.GetIssue))
			r.Get("/api/v1/admin/status", orNotImplemented(deps.StatusHandler))
		})
	}

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, response.CodeNotImplemented, "Endpoint not yet implemented", nil)
	}
}
