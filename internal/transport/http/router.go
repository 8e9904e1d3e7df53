// Package httptransport assembles the public HTTP surface: middleware chain,
// resolve routes, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "medadmit/internal/platform/metrics"
	ratelimitMW "medadmit/internal/ratelimit/middleware"
	ratelimitModels "medadmit/internal/ratelimit/models"
	"medadmit/pkg/platform/httputil"
	"medadmit/pkg/platform/middleware/metadata"
	"medadmit/pkg/platform/middleware/request"
)

// healthTimeout bounds the whole /healthz probe.
const healthTimeout = 2 * time.Second

// RouteRegistrar mounts a module's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports one dependency. Critical failures turn /healthz into a
// 503; others only mark it degraded.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Deps are the collaborators the router wires together.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *platformmetrics.Metrics
	Gatherer  prometheus.Gatherer
	RateLimit *ratelimitMW.Middleware
	Resolver  RouteRegistrar
	Health    []HealthCheck
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewRouter wires the middleware chain and routes. Outermost first: request
// ID, request time, panic recovery, client metadata, access log, metrics.
func NewRouter(d Deps) chi.Router {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Time)
	r.Use(request.Recover(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(request.AccessLog(logger))
	r.Use(d.Metrics.Middleware)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.RateLimit(ratelimitModels.ClassOps))
		}
		r.Get("/healthz", healthHandler(d.Health))
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	})

	if d.Resolver != nil {
		r.Group(func(r chi.Router) {
			if d.RateLimit != nil {
				r.Use(d.RateLimit.RateLimit(ratelimitModels.ClassResolve))
			}
			d.Resolver.Register(r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	return r
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = err.Error()
				if c.Critical {
					resp.Status = "unavailable"
					status = http.StatusServiceUnavailable
				} else if resp.Status == "ok" {
					resp.Status = "degraded"
				}
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
