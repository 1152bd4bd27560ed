// Package httptransport assembles the HTTP surface: the public verification
// routes, the authenticated institution routes, the pipeline handoff, and
// the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credence/internal/platform/middleware"
	"credence/pkg/platform/httputil"
)

// Registrar mounts a handler's routes on a router group.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router composes. Nil optional fields disable
// the routes or checks they back.
type Deps struct {
	Credentials  Registrar
	Verification interface {
		Registrar
		RegisterAdmin(r chi.Router)
	}
	Graduation interface {
		RegisterPipeline(r chi.Router)
		RegisterAdmin(r chi.Router)
	}
	Ledger Registrar

	JWTValidator   middleware.JWTValidator
	PipelineKeyOK  func(http.Handler) http.Handler
	HealthCheckers map[string]HealthChecker

	Logger *slog.Logger
}

// NewRouter builds the full route tree with the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	// Public surface. Client metadata feeds the verification audit trail.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ClientMetadata)
		deps.Verification.Register(r)
	})

	// Institution surface behind bearer auth.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		r.Use(middleware.ContentTypeJSON)
		deps.Credentials.Register(r)
		deps.Verification.RegisterAdmin(r)
		deps.Graduation.RegisterAdmin(r)
		if deps.Ledger != nil {
			deps.Ledger.Register(r)
		}
	})

	// Pipeline handoff behind the static API key.
	r.Group(func(r chi.Router) {
		r.Use(deps.PipelineKeyOK)
		r.Use(middleware.ContentTypeJSON)
		deps.Graduation.RegisterPipeline(r)
	})

	r.Get("/healthz", healthHandler(deps.HealthCheckers))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(checkers))
		for name, checker := range checkers {
			if err := checker.Health(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(checks) > 0 {
			body["checks"] = checks
		}
		httputil.WriteJSON(w, status, body)
	}
}
