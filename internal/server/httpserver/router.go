package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/onelogin/internal/server/httpserver/handler"
	"github.com/yndnr/onelogin/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Sessions serves the /v1 session routes.
	Sessions handler.Sessions

	// Ready reports store reachability for /ready. Optional.
	Ready handler.ReadyFunc

	// Metrics backs /metrics and request counters. Optional.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// APIKey is the bearer key for /v1 routes. Empty disables auth.
	APIKey string

	// MetricsAuthRequired puts /metrics behind the API key as well.
	MetricsAuthRequired bool

	// EnableAudit enables audit logging for /v1 requests.
	EnableAudit bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := handler.New(cfg.Sessions, cfg.Ready, log)

	mux := http.NewServeMux()

	probe := Chain(h, RequestID(), Recover(log))
	mux.Handle("GET /health", probe)
	mux.Handle("GET /ready", probe)

	metricsMW := []Middleware{RequestID(), Recover(log)}
	if cfg.MetricsAuthRequired {
		metricsMW = append(metricsMW, APIKeyAuth(cfg.APIKey, log))
	}
	mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), metricsMW...))

	apiMW := []Middleware{RequestID(), Recover(log), Metrics(cfg.Metrics)}
	if cfg.EnableAudit {
		apiMW = append(apiMW, Audit(log))
	}
	apiMW = append(apiMW, APIKeyAuth(cfg.APIKey, log))
	mux.Handle("/v1/", Chain(h, apiMW...))

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		EnableAudit: true,
	}
}
