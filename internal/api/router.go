package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikhilbhutani/mediadesk/internal/api/handlers"
	"github.com/nikhilbhutani/mediadesk/internal/api/middleware"
	"github.com/nikhilbhutani/mediadesk/internal/config"
	"github.com/nikhilbhutani/mediadesk/internal/metrics"
)

// Deps carries everything the router wires into handlers. Metrics and
// Gatherer may be nil, in which case request metrics and /metrics are off.
type Deps struct {
	Processing handlers.ProcessingDeps
	Caps       handlers.Capabilities
	Backends   map[string]handlers.Pinger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	if deps.Processing.Metrics == nil {
		deps.Processing.Metrics = deps.Metrics
	}
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
	}
}

// Setup builds the handler tree. ctx bounds background work started by
// middleware, such as the rate limiter janitor.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if rt.deps.Metrics != nil {
		r.Use(middleware.Metrics(rt.deps.Metrics))
	}
	r.Use(middleware.Logging)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	if rt.cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(ctx, rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
		r.Use(rl.Limit)
	}

	health := handlers.NewHealthHandler(rt.deps.Caps, rt.deps.Backends)
	r.Get("/health", health.Health)
	r.Get("/readyz", health.Readyz)

	if rt.deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	proc := handlers.NewProcessingHandler(rt.deps.Processing)
	r.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimit(rt.cfg.Upload.MaxBytes))

		r.Post("/process_audio", proc.ProcessAudio)
		r.Post("/process_ocr", proc.ProcessOCR)
		r.Post("/process_translate", proc.ProcessTranslate)
	})

	return r
}
