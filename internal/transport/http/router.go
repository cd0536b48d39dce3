// Package httptransport assembles the HTTP surface: shared middleware,
// operational endpoints and each bounded context's routes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "kinship/internal/platform/metrics"
	"kinship/pkg/platform/middleware/metadata"
	"kinship/pkg/platform/middleware/request"
	"kinship/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every context's handler.
type Registrar interface {
	Register(r chi.Router)
}

type Deps struct {
	Logger      *slog.Logger
	Metrics     *platformmetrics.Metrics
	Gatherer    prometheus.Gatherer
	Health      *Health
	RequireAuth func(http.Handler) http.Handler
	// Handlers are mounted behind RequireAuth.
	Handlers []Registrar
}

// NewRouter wires the middleware chain. /healthz and /metrics stay outside
// authentication so probes and scrapers need no token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	if d.Health != nil {
		r.Get("/healthz", d.Health.ServeHTTP)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(api chi.Router) {
		if d.RequireAuth != nil {
			api.Use(d.RequireAuth)
		}
		for _, h := range d.Handlers {
			h.Register(api)
		}
	})
	return r
}
