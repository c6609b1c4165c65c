// Package api provides the HTTP API handlers and routing for the cluster monitor.
package api

import (
	"encoding/json"
	"flinkrest/internal/apperrors"
	"flinkrest/internal/health"
	"flinkrest/internal/observability"
	"flinkrest/pkg/flink"
	"log/slog"
	"net/http"
	"strings"
)

// maxRequestBodySize limits request body to 1MB to prevent memory exhaustion
const maxRequestBodySize = 1 << 20 // 1 MB

// Handler contains HTTP handlers for the monitor API
type Handler struct {
	cluster *flink.Client
	metrics *observability.Metrics
	health  *health.Checker
}

// NewHandler creates a new API handler
func NewHandler(cluster *flink.Client, metrics *observability.Metrics, healthChecker *health.Checker) *Handler {
	return &Handler{
		cluster: cluster,
		metrics: metrics,
		health:  healthChecker,
	}
}

// SavepointRequest is the body of POST /v1/jobs/{jobId}/savepoints.
type SavepointRequest struct {
	TargetDirectory string `json:"targetDirectory"`
	CancelJob       bool   `json:"cancelJob"`
}

// TriggerResponse points a caller at the status of an asynchronous operation.
type TriggerResponse struct {
	JobID     string `json:"jobId,omitempty"`
	Kind      string `json:"kind"`
	TriggerID string `json:"triggerId"`
	StatusURL string `json:"statusUrl"`
}

// Overview handles GET /v1/overview
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.cluster.Overview(r.Context())
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("overview", err))
		return
	}

	h.writeJSON(w, http.StatusOK, overview)
}

// ListJobs handles GET /v1/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.cluster.Jobs.Overview(r.Context())
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.overview", err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// GetJob handles GET /v1/jobs/{jobId}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	if jobID == "" {
		h.writeError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.cluster.Jobs.Get(r.Context(), jobID)
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.get", err))
		return
	}

	h.writeJSON(w, http.StatusOK, job)
}

// GetJobExceptions handles GET /v1/jobs/{jobId}/exceptions
func (h *Handler) GetJobExceptions(w http.ResponseWriter, r *http.Request) {
	exceptions, err := h.cluster.Jobs.Exceptions(r.Context(), r.PathValue("jobId"))
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.exceptions", err))
		return
	}

	h.writeJSON(w, http.StatusOK, exceptions)
}

// GetJobCheckpoints handles GET /v1/jobs/{jobId}/checkpoints
func (h *Handler) GetJobCheckpoints(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := h.cluster.Jobs.Checkpoints(r.Context(), r.PathValue("jobId"))
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.checkpoints", err))
		return
	}

	h.writeJSON(w, http.StatusOK, checkpoints)
}

// CancelJob handles DELETE /v1/jobs/{jobId}
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	if jobID == "" {
		h.writeError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	if err := h.cluster.Jobs.Cancel(r.Context(), jobID); err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.terminate", err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// CreateSavepoint handles POST /v1/jobs/{jobId}/savepoints
func (h *Handler) CreateSavepoint(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent memory exhaustion
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req SavepointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.TargetDirectory == "" {
		h.handleError(w, r, apperrors.Validation("targetDirectory", "targetDirectory is required"))
		return
	}

	trigger, err := h.cluster.Jobs.CreateSavepoint(r.Context(), r.PathValue("jobId"), req.TargetDirectory, req.CancelJob)
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.createSavepoint", err))
		return
	}

	h.writeJSON(w, http.StatusAccepted, triggerResponse(trigger))
}

// GetTrigger handles GET /v1/jobs/{jobId}/triggers/{kind}/{triggerId}
func (h *Handler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != flink.TriggerSavepoints && kind != flink.TriggerRescaling {
		h.handleError(w, r, apperrors.Validation("kind", "kind must be savepoints or rescaling"))
		return
	}

	trigger := h.cluster.Jobs.Trigger(kind, r.PathValue("jobId"), r.PathValue("triggerId"))
	status, err := trigger.Poll(r.Context())
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("trigger.poll", err))
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// ListTaskManagers handles GET /v1/taskmanagers
func (h *Handler) ListTaskManagers(w http.ResponseWriter, r *http.Request) {
	taskManagers, err := h.cluster.TaskManagers.All(r.Context())
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("taskmanagers.all", err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"taskmanagers": taskManagers})
}

// TaskManagerMetrics handles GET /v1/taskmanagers/metrics
// Query params: get, agg, taskmanagers (comma separated, all optional)
func (h *Handler) TaskManagerMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.cluster.TaskManagers.Metrics(r.Context(), metricQuery(r, "taskmanagers"))
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("taskmanagers.metrics", err))
		return
	}

	h.writeJSON(w, http.StatusOK, metrics)
}

// JobMetrics handles GET /v1/jobs/metrics
// Query params: get, agg, jobs (comma separated, all optional)
func (h *Handler) JobMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.cluster.Jobs.Metrics(r.Context(), metricQuery(r, "jobs"))
	if err != nil {
		h.handleError(w, r, apperrors.Upstream("jobs.metrics", err))
		return
	}

	h.writeJSON(w, http.StatusOK, metrics)
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 200 while the cluster answers, even when it is degraded.
// Returns 503 if the cluster is unreachable or the service is shutting down.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsServing() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

func metricQuery(r *http.Request, idsParam string) flink.MetricQuery {
	q := r.URL.Query()
	var modes []flink.AggregationMode
	for _, m := range splitList(q.Get("agg")) {
		modes = append(modes, flink.AggregationMode(m))
	}
	return flink.MetricQuery{
		Names:        splitList(q.Get("get")),
		Aggregations: modes,
		IDs:          splitList(q.Get(idsParam)),
	}
}

// splitList returns nil for an empty parameter so the client applies its defaults.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func triggerResponse(t *flink.Trigger) TriggerResponse {
	return TriggerResponse{
		JobID:     t.JobID,
		Kind:      t.Kind(),
		TriggerID: t.ID,
		StatusURL: "/v1/jobs/" + t.JobID + "/triggers/" + t.Kind() + "/" + t.ID,
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleError maps client and service errors to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		slog.Error("Cluster request failed", "error", err, "path", r.URL.Path, "status", status)
	} else {
		slog.Warn("Client error", "error", err, "path", r.URL.Path, "status", status)
	}
	h.writeError(w, status, err.Error())
}
