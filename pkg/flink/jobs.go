package flink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Job states that count as active for DeleteByName.
const (
	JobStateRunning    = "RUNNING"
	JobStateRestarting = "RESTARTING"
)

// JobsClient covers /jobs.
type JobsClient struct {
	exec   *Executor
	prefix string
}

// Prefix returns the facet's URL prefix.
func (j *JobsClient) Prefix() string {
	return j.prefix
}

func (j *JobsClient) url(path string) string {
	return j.prefix + path
}

// All lists every job and its current state.
//
// Endpoint: GET /jobs
func (j *JobsClient) All(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := j.exec.DoField(ctx, &Request{URL: j.prefix}, "jobs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IDs lists the ids of every job.
func (j *JobsClient) IDs(ctx context.Context) ([]string, error) {
	var jobs []struct {
		ID string `json:"id"`
	}
	if err := j.exec.DoField(ctx, &Request{URL: j.prefix}, "jobs", &jobs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	return ids, nil
}

// Overview returns a summary of every job.
//
// Endpoint: GET /jobs/overview
func (j *JobsClient) Overview(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := j.exec.DoField(ctx, &Request{URL: j.url("/overview")}, "jobs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByName terminates every RUNNING or RESTARTING job called name and
// returns the ids whose termination the cluster confirmed. It stops at the
// first job that could not be terminated; the ids confirmed so far are
// returned with the error.
func (j *JobsClient) DeleteByName(ctx context.Context, name string) ([]string, error) {
	var jobs []struct {
		JID   string `json:"jid"`
		Name  string `json:"name"`
		State string `json:"state"`
	}
	if err := j.exec.DoField(ctx, &Request{URL: j.url("/overview")}, "jobs", &jobs); err != nil {
		return nil, err
	}

	var terminated []string
	for _, job := range jobs {
		if job.Name != name || (job.State != JobStateRunning && job.State != JobStateRestarting) {
			continue
		}
		if err := j.Cancel(ctx, job.JID); err != nil {
			return terminated, err
		}
		terminated = append(terminated, job.JID)
	}
	return terminated, nil
}

// MetricNames lists the metrics available across jobs.
//
// Endpoint: GET /jobs/metrics
func (j *JobsClient) MetricNames(ctx context.Context) ([]string, error) {
	return j.exec.metricNames(ctx, j.url("/metrics"))
}

// Metrics returns aggregated metrics across jobs. Invalid aggregation modes
// fail before any request is made.
//
// Endpoint: GET /jobs/metrics
func (j *JobsClient) Metrics(ctx context.Context, q MetricQuery) (AggregatedMetrics, error) {
	return j.exec.aggregatedMetrics(ctx, j.url("/metrics"), "jobs", q, j.IDs)
}

// Get returns the details of a job.
//
// Endpoint: GET /jobs/:jobid
func (j *JobsClient) Get(ctx context.Context, jobID string) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.url("/" + jobID)})
}

// Config returns the configuration of a job.
//
// Endpoint: GET /jobs/:jobid/config
func (j *JobsClient) Config(ctx context.Context, jobID string) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.url("/" + jobID + "/config")})
}

// Exceptions returns the most recent exceptions of a job.
//
// Endpoint: GET /jobs/:jobid/exceptions
func (j *JobsClient) Exceptions(ctx context.Context, jobID string) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.url("/" + jobID + "/exceptions")})
}

// ExecutionResult returns the result of a job execution.
//
// Endpoint: GET /jobs/:jobid/execution-result
func (j *JobsClient) ExecutionResult(ctx context.Context, jobID string) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.url("/" + jobID + "/execution-result")})
}

// JobMetrics returns metric values of one job. Nil names reads every metric.
//
// Endpoint: GET /jobs/:jobid/metrics
func (j *JobsClient) JobMetrics(ctx context.Context, jobID string, names []string) (MetricValues, error) {
	return j.exec.metricValues(ctx, j.url("/"+jobID+"/metrics"), names)
}

// Plan returns the dataflow plan of a job.
//
// Endpoint: GET /jobs/:jobid/plan
func (j *JobsClient) Plan(ctx context.Context, jobID string) (map[string]any, error) {
	var out map[string]any
	if err := j.exec.DoField(ctx, &Request{URL: j.url("/" + jobID + "/plan")}, "plan", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VertexIDs lists the vertex ids of a job.
func (j *JobsClient) VertexIDs(ctx context.Context, jobID string) ([]string, error) {
	var vertices []struct {
		ID string `json:"id"`
	}
	if err := j.exec.DoField(ctx, &Request{URL: j.url("/" + jobID)}, "vertices", &vertices); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(vertices))
	for _, v := range vertices {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// Accumulators returns the aggregated user accumulators of a job. A nil
// includeSerialized leaves the server default.
//
// Endpoint: GET /jobs/:jobid/accumulators
func (j *JobsClient) Accumulators(ctx context.Context, jobID string, includeSerialized *bool) (map[string]any, error) {
	req := &Request{URL: j.url("/" + jobID + "/accumulators")}
	if includeSerialized != nil {
		req.Query = url.Values{"includeSerializedValue": {strconv.FormatBool(*includeSerialized)}}
	}
	return j.exec.object(ctx, req)
}

// CheckpointConfig returns the checkpointing configuration of a job.
//
// Endpoint: GET /jobs/:jobid/checkpoints/config
func (j *JobsClient) CheckpointConfig(ctx context.Context, jobID string) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.url("/" + jobID + "/checkpoints/config")})
}

// Checkpoints returns checkpoint statistics of a job.
//
// Endpoint: GET /jobs/:jobid/checkpoints
func (j *JobsClient) Checkpoints(ctx context.Context, jobID string) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.url("/" + jobID + "/checkpoints")})
}

// CheckpointIDs lists the ids in the checkpoint history of a job.
func (j *JobsClient) CheckpointIDs(ctx context.Context, jobID string) ([]int64, error) {
	var history []struct {
		ID int64 `json:"id"`
	}
	req := &Request{URL: j.url("/" + jobID + "/checkpoints")}
	if err := j.exec.DoField(ctx, req, "history", &history); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(history))
	for _, h := range history {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// CheckpointDetails returns one checkpoint. With withSubtasks the details of
// every task are fetched too and stored under "subtasks", keyed by vertex id.
//
// Endpoint: GET /jobs/:jobid/checkpoints/details/:checkpointid
func (j *JobsClient) CheckpointDetails(ctx context.Context, jobID string, checkpointID int64, withSubtasks bool) (map[string]any, error) {
	base := j.url("/" + jobID + "/checkpoints/details/" + strconv.FormatInt(checkpointID, 10))
	details, err := j.exec.object(ctx, &Request{URL: base})
	if err != nil || !withSubtasks {
		return details, err
	}

	tasks, _ := details["tasks"].(map[string]any)
	subtasks := make(map[string]any, len(tasks))
	for vertexID := range tasks {
		sub, err := j.exec.object(ctx, &Request{URL: base + "/subtasks/" + vertexID})
		if err != nil {
			return nil, err
		}
		subtasks[vertexID] = sub
	}
	details["subtasks"] = subtasks
	return details, nil
}

// Rescale starts rescaling a job to parallelism.
//
// Endpoint: PATCH /jobs/:jobid/rescaling
func (j *JobsClient) Rescale(ctx context.Context, jobID string, parallelism int) (*Trigger, error) {
	if parallelism < 0 {
		return nil, validationError("parallelism", "parallelism must be a positive integer")
	}
	var id TriggerID
	req := &Request{
		URL:    j.url("/" + jobID + "/rescaling"),
		Method: http.MethodPatch,
		Query:  url.Values{"parallelism": {strconv.Itoa(parallelism)}},
		Expect: http.StatusAccepted,
	}
	if err := j.exec.DoField(ctx, req, "triggerid", &id); err != nil {
		return nil, err
	}
	return newJobTrigger(j.exec, j.prefix, TriggerRescaling, jobID, id), nil
}

// CreateSavepoint starts a savepoint into targetDirectory, cancelling the job
// afterwards when cancelJob is set.
//
// Endpoint: POST /jobs/:jobid/savepoints
func (j *JobsClient) CreateSavepoint(ctx context.Context, jobID, targetDirectory string, cancelJob bool) (*Trigger, error) {
	var id TriggerID
	req := &Request{
		URL:    j.url("/" + jobID + "/savepoints"),
		Method: http.MethodPost,
		JSON: map[string]any{
			"cancel-job":       cancelJob,
			"target-directory": targetDirectory,
		},
		Expect: http.StatusAccepted,
	}
	if err := j.exec.DoField(ctx, req, "request-id", &id); err != nil {
		return nil, err
	}
	return newJobTrigger(j.exec, j.prefix, TriggerSavepoints, jobID, id), nil
}

// Terminate cancels a job.
//
// Endpoint: PATCH /jobs/:jobid
func (j *JobsClient) Terminate(ctx context.Context, jobID string) (Outcome, error) {
	outcome, _, err := j.terminate(ctx, jobID)
	return outcome, err
}

// Cancel terminates a job like Terminate but reports a Failure outcome as an
// ErrConvention error carrying the response body.
func (j *JobsClient) Cancel(ctx context.Context, jobID string) error {
	outcome, body, err := j.terminate(ctx, jobID)
	if err != nil {
		return err
	}
	if outcome == Failure {
		return conventionError("jobs.terminate", "cluster did not confirm termination of job "+jobID, body)
	}
	return nil
}

func (j *JobsClient) terminate(ctx context.Context, jobID string) (Outcome, json.RawMessage, error) {
	body, err := j.exec.Do(ctx, &Request{
		URL:    j.url("/" + jobID),
		Method: http.MethodPatch,
		Expect: http.StatusAccepted,
	})
	if err != nil {
		return Failure, nil, err
	}
	return OutcomeFromBody(body), body, nil
}

// Stop stops a job with a savepoint. With drain the sources emit
// MAX_WATERMARK first. The status lives under the savepoints kind.
//
// Endpoint: POST /jobs/:jobid/stop
func (j *JobsClient) Stop(ctx context.Context, jobID, targetDirectory string, drain bool) (*Trigger, error) {
	payload := map[string]any{"drain": drain}
	if targetDirectory != "" {
		payload["targetDirectory"] = targetDirectory
	}
	var id TriggerID
	req := &Request{
		URL:    j.url("/" + jobID + "/stop"),
		Method: http.MethodPost,
		JSON:   payload,
		Expect: http.StatusAccepted,
	}
	if err := j.exec.DoField(ctx, req, "request-id", &id); err != nil {
		return nil, err
	}
	return newJobTrigger(j.exec, j.prefix, TriggerSavepoints, jobID, id), nil
}

// Trigger rebuilds the handle of an earlier savepoint, stop or rescale call.
func (j *JobsClient) Trigger(kind, jobID, triggerID string) *Trigger {
	return newJobTrigger(j.exec, j.prefix, kind, jobID, TriggerID(triggerID))
}

// Vertex returns the facet of one job vertex.
func (j *JobsClient) Vertex(jobID, vertexID string) *VertexClient {
	return &VertexClient{
		exec:     j.exec,
		prefix:   j.url("/" + jobID + "/vertices/" + vertexID),
		JobID:    jobID,
		VertexID: vertexID,
	}
}
