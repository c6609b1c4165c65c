package api

import (
	"flinkrest/internal/health"
	"flinkrest/internal/observability"
	"flinkrest/pkg/flink"
	"log/slog"
	"net/http"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Cluster       *flink.Client
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
	APIKey        string
	Logger        *slog.Logger
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.Cluster, cfg.Metrics, cfg.HealthChecker)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Cluster endpoints - auth required
	auth := AuthMiddleware(cfg.APIKey)
	mux.Handle("GET /v1/overview", auth(http.HandlerFunc(handler.Overview)))
	mux.Handle("GET /v1/jobs", auth(http.HandlerFunc(handler.ListJobs)))
	mux.Handle("GET /v1/jobs/metrics", auth(http.HandlerFunc(handler.JobMetrics)))
	mux.Handle("GET /v1/jobs/{jobId}", auth(http.HandlerFunc(handler.GetJob)))
	mux.Handle("DELETE /v1/jobs/{jobId}", auth(http.HandlerFunc(handler.CancelJob)))
	mux.Handle("GET /v1/jobs/{jobId}/exceptions", auth(http.HandlerFunc(handler.GetJobExceptions)))
	mux.Handle("GET /v1/jobs/{jobId}/checkpoints", auth(http.HandlerFunc(handler.GetJobCheckpoints)))
	mux.Handle("POST /v1/jobs/{jobId}/savepoints", auth(http.HandlerFunc(handler.CreateSavepoint)))
	mux.Handle("GET /v1/jobs/{jobId}/triggers/{kind}/{triggerId}", auth(http.HandlerFunc(handler.GetTrigger)))
	mux.Handle("GET /v1/taskmanagers", auth(http.HandlerFunc(handler.ListTaskManagers)))
	mux.Handle("GET /v1/taskmanagers/metrics", auth(http.HandlerFunc(handler.TaskManagerMetrics)))

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware(cfg.Logger)(h)
	h = RecoveryMiddleware()(h)

	return h
}
