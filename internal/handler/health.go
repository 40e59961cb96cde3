package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/pbgate/internal/pocketbase"
)

// BackendProbe checks that the auth backend answers.
type BackendProbe interface {
	ListAuthMethods(ctx context.Context) (*pocketbase.AuthMethods, error)
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	probe   BackendProbe
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. The readiness probe is bounded
// by timeout.
func NewHealthHandler(probe BackendProbe, timeout time.Duration, logger *slog.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{probe: probe, timeout: timeout, logger: logger}
}

// RegisterRoutes registers:
// - GET /health     -> Live
// - GET /api/health -> Ready
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Live)
	mux.HandleFunc("GET /api/health", h.Ready)
}

// Live reports that the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

type readiness struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// Ready reports whether the auth backend is reachable. It answers 503 when
// it is not, so load balancers stop routing sign-ins to a broken instance.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body := readiness{Status: "ok", Backend: "ok"}
	status := http.StatusOK
	if _, err := h.probe.ListAuthMethods(ctx); err != nil {
		h.logger.Warn("backend health check failed", "error", err)
		body = readiness{Status: "degraded", Backend: "unreachable"}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
