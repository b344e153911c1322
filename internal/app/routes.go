package app

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlBaraa63/Clean-City/internal"
	"github.com/AlBaraa63/Clean-City/internal/handler"
	"github.com/AlBaraa63/Clean-City/internal/metrics"
	"github.com/AlBaraa63/Clean-City/internal/middleware"
)

// Handler builds the HTTP routes and global middleware. The returned stop
// function releases the rate limiter, if any, and must be called on shutdown.
func (a *App) Handler(cfg *internal.Config, logger *slog.Logger) (http.Handler, func()) {
	isSecure := cfg.Env != "development"

	limit := func(next http.Handler) http.Handler { return next }
	stop := func() {}
	if cfg.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		limit = middleware.NewRateLimitMiddleware(limiter, logger).Limit
		stop = limiter.Stop
	} else {
		logger.Warn("Rate limiting disabled")
	}

	metricsAuth := middleware.NewMetricsAuth(cfg.MetricsUsername, cfg.MetricsPassword, logger)
	if !metricsAuth.Enabled() {
		logger.Warn("Metrics endpoint is unauthenticated; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("GET /health", handler.NewHealthHandler(a.DB, logger))
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// No detector is bundled; /api/analyze answers 503 until one is wired.
	api := handler.NewAPIHandler(a.Service, nil, logger)
	api.RegisterRoutes(mux, limit)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// ==========================================================================
	// Global middleware
	// ==========================================================================

	stack := middleware.Stack(
		middleware.RequestID,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		metrics.Middleware,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
	)

	return stack(mux), stop
}
