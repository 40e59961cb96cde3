package main

import (
	"context"
	"log/slog"
	"net/http"

	"filippo.io/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/pbgate/internal"
	"github.com/DukeRupert/pbgate/internal/handler"
	"github.com/DukeRupert/pbgate/internal/metrics"
	"github.com/DukeRupert/pbgate/internal/middleware"
	"github.com/DukeRupert/pbgate/internal/service"
	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// newHandler wires the router and its middleware around backend.
//
// Request flow, outermost first:
//
//	security headers -> metrics -> request log -> session gate -> cross-origin check -> mux
//
// The gate runs before any page handler so redirects and cookie rotation
// happen before rendering. /metrics, /health and /api/* bypass the gate.
// Background work started here ends when ctx is done.
func newHandler(ctx context.Context, cfg *internal.Config, logger *slog.Logger, backend service.Backend) http.Handler {
	isSecure := cfg.IsSecure()

	authService := service.NewAuthService(backend, service.AuthServiceConfig{
		LoginPath:   cfg.LoginPath,
		LandingPath: cfg.LandingPath,
	}, logger)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	securityMw := middleware.NewSecurityHeadersMiddleware(middleware.SecurityConfig{
		IsSecure:      isSecure,
		ScriptSources: []string{shared.ScriptOrigin},
	})
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	authLimiter := middleware.NewAuthRateLimiter(logger)
	context.AfterFunc(ctx, authLimiter.Stop)
	gate := middleware.NewGate(authService, middleware.GateConfig{
		ProtectedPrefixes: cfg.ProtectedRoutes,
		AuthOnlyPrefixes:  cfg.AuthRoutes,
		LoginPath:         cfg.LoginPath,
		LandingPath:       cfg.LandingPath,
		RefreshTimeout:    cfg.GateRefreshTimeout,
		IsSecure:          isSecure,
	}, logger)

	if !metricsAuth.Enabled() {
		logger.Warn("metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))
	mux.HandleFunc("GET /robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /auth/\nDisallow: /dashboard\nDisallow: /profile\n"))
	})

	handler.NewHealthHandler(authService, cfg.GateRefreshTimeout, logger).RegisterRoutes(mux)
	handler.NewAuthHandler(authService, authLimiter, logger, isSecure).RegisterRoutes(mux)
	handler.NewAppHandler(authService, logger, isSecure).RegisterRoutes(mux)

	// Form POSTs from other origins are rejected before reaching handlers.
	protection := csrf.New()

	return middleware.Stack(
		securityMw.Handler,
		metrics.Middleware,
		loggingMw.Handler,
		gate.Handler,
	)(protection.Handler(mux))
}
