package flink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJobs_Terminate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want Outcome
	}{
		{"empty object", `{}`, Success},
		{"empty body", ``, Success},
		{"non-empty body", `{"request-id":"x"}`, Failure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFakeCluster(t)
			f.handle(http.MethodPatch, "/v1/jobs/j1", response{http.StatusAccepted, tt.body})
			c := f.client(t)

			got, err := c.Jobs.Terminate(context.Background(), "j1")
			if err != nil {
				t.Fatalf("Terminate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestJobs_Cancel(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodPatch, "/v1/jobs/ok", response{http.StatusAccepted, `{}`})
	f.handle(http.MethodPatch, "/v1/jobs/bad", response{http.StatusAccepted, `{"errors":["job bad could not be cancelled"]}`})
	c := f.client(t)

	if err := c.Jobs.Cancel(context.Background(), "ok"); err != nil {
		t.Errorf("Cancel(ok) error = %v", err)
	}

	err := c.Jobs.Cancel(context.Background(), "bad")
	if !errors.Is(err, ErrConvention) {
		t.Fatalf("Expected ErrConvention, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if string(apiErr.Body) != `{"errors":["job bad could not be cancelled"]}` {
		t.Errorf("Expected response body in error, got %q", apiErr.Body)
	}
}

func TestJobs_Rescale(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodPatch, "/v1/jobs/j1/rescaling", response{http.StatusAccepted, `{"triggerid":"r-1"}`})
	c := f.client(t)

	trigger, err := c.Jobs.Rescale(context.Background(), "j1", 4)
	if err != nil {
		t.Fatalf("Rescale() error = %v", err)
	}
	if trigger.URL() != c.URL("/jobs/j1/rescaling/r-1") {
		t.Errorf("Unexpected trigger URL %s", trigger.URL())
	}
	if trigger.Kind() != TriggerRescaling {
		t.Errorf("Expected kind rescaling, got %s", trigger.Kind())
	}
	if got := f.recorded()[0].Query.Get("parallelism"); got != "4" {
		t.Errorf("Expected parallelism=4, got %q", got)
	}
}

func TestJobs_RescaleNegativeParallelism(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	c := f.client(t)

	_, err := c.Jobs.Rescale(context.Background(), "j1", -1)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if n := len(f.recorded()); n != 0 {
		t.Errorf("Expected no requests, got %d", n)
	}
}

func TestJobs_CreateSavepoint(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodPost, "/v1/jobs/j1/savepoints", response{http.StatusAccepted, `{"request-id":"sp-1"}`})
	c := f.client(t)

	trigger, err := c.Jobs.CreateSavepoint(context.Background(), "j1", "s3://bucket/sp", true)
	if err != nil {
		t.Fatalf("CreateSavepoint() error = %v", err)
	}
	if trigger.URL() != c.URL("/jobs/j1/savepoints/sp-1") {
		t.Errorf("Unexpected trigger URL %s", trigger.URL())
	}

	var body map[string]any
	json.Unmarshal(f.recorded()[0].Body, &body)
	want := map[string]any{"cancel-job": true, "target-directory": "s3://bucket/sp"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestJobs_Stop(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodPost, "/v1/jobs/j1/stop", response{http.StatusAccepted, `{"request-id":"st-1"}`})
	c := f.client(t)

	trigger, err := c.Jobs.Stop(context.Background(), "j1", "/tmp/sp", true)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if trigger.Kind() != TriggerSavepoints || trigger.ID != "st-1" || trigger.JobID != "j1" {
		t.Errorf("Unexpected trigger %+v", trigger)
	}

	var body map[string]any
	json.Unmarshal(f.recorded()[0].Body, &body)
	want := map[string]any{"drain": true, "targetDirectory": "/tmp/sp"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestJobs_MetricsInvalidAggregation(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	c := f.client(t)

	_, err := c.Jobs.Metrics(context.Background(), MetricQuery{
		Names:        []string{"uptime"},
		Aggregations: []AggregationMode{AggregateMin, "median"},
		IDs:          []string{"j1"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if n := len(f.recorded()); n != 0 {
		t.Errorf("Expected no requests, got %d", n)
	}
}

func TestJobs_MetricsResolvesDefaults(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/metrics",
		response{http.StatusOK, `[{"id":"uptime"},{"id":"downtime"}]`},
		response{http.StatusOK, `[{"id":"uptime","min":1,"max":9,"avg":5,"sum":10}]`},
	)
	f.handle(http.MethodGet, "/v1/jobs", response{http.StatusOK, `{"jobs":[{"id":"j1","status":"RUNNING"},{"id":"j2","status":"FINISHED"}]}`})
	c := f.client(t)

	got, err := c.Jobs.Metrics(context.Background(), MetricQuery{})
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}

	minV, maxV, avgV, sumV := 1.0, 9.0, 5.0, 10.0
	want := AggregatedMetrics{"uptime": {Min: &minV, Max: &maxV, Avg: &avgV, Sum: &sumV}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Metrics() mismatch (-want +got):\n%s", diff)
	}

	reqs := f.recorded()
	if len(reqs) != 3 {
		t.Fatalf("Expected 3 requests, got %v", f.paths())
	}
	q := reqs[2].Query
	if q.Get("get") != "uptime,downtime" || q.Get("agg") != "min,max,sum,avg" || q.Get("jobs") != "j1,j2" {
		t.Errorf("Unexpected query %v", q)
	}
}

func TestJobs_JobMetrics(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/j1/metrics", response{http.StatusOK,
		`[{"id":"numRestarts","value":"0"},{"id":"uptime","value":"12"},{"id":"uptime","value":"13"}]`})
	c := f.client(t)

	got, err := c.Jobs.JobMetrics(context.Background(), "j1", []string{"numRestarts", "uptime"})
	if err != nil {
		t.Fatalf("JobMetrics() error = %v", err)
	}
	// duplicate ids keep the later value
	want := MetricValues{"numRestarts": "0", "uptime": "13"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JobMetrics() mismatch (-want +got):\n%s", diff)
	}
	if q := f.recorded()[0].Query.Get("get"); q != "numRestarts,uptime" {
		t.Errorf("Expected get=numRestarts,uptime, got %q", q)
	}
}

func TestJobs_DeleteByName(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/overview", response{http.StatusOK, `{"jobs":[
		{"jid":"a","name":"etl","state":"RUNNING"},
		{"jid":"b","name":"etl","state":"FINISHED"},
		{"jid":"c","name":"etl","state":"RESTARTING"},
		{"jid":"d","name":"other","state":"RUNNING"}]}`})
	f.handle(http.MethodPatch, "/v1/jobs/a", response{http.StatusAccepted, `{}`})
	f.handle(http.MethodPatch, "/v1/jobs/c", response{http.StatusAccepted, `{}`})
	c := f.client(t)

	got, err := c.Jobs.DeleteByName(context.Background(), "etl")
	if err != nil {
		t.Fatalf("DeleteByName() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, got); diff != "" {
		t.Errorf("DeleteByName() mismatch (-want +got):\n%s", diff)
	}
	want := []string{"GET /v1/jobs/overview", "PATCH /v1/jobs/a", "PATCH /v1/jobs/c"}
	if diff := cmp.Diff(want, f.paths()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestJobs_DeleteByNameStopsAtFailedTerminate(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/overview", response{http.StatusOK, `{"jobs":[
		{"jid":"a","name":"etl","state":"RUNNING"},
		{"jid":"b","name":"etl","state":"RUNNING"},
		{"jid":"c","name":"etl","state":"RUNNING"}]}`})
	f.handle(http.MethodPatch, "/v1/jobs/a", response{http.StatusAccepted, `{}`})
	f.handle(http.MethodPatch, "/v1/jobs/b", response{http.StatusAccepted, `{"errors":["job b could not be cancelled"]}`})
	c := f.client(t)

	got, err := c.Jobs.DeleteByName(context.Background(), "etl")
	if !errors.Is(err, ErrConvention) {
		t.Fatalf("Expected ErrConvention, got %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("DeleteByName() mismatch (-want +got):\n%s", diff)
	}
	want := []string{"GET /v1/jobs/overview", "PATCH /v1/jobs/a", "PATCH /v1/jobs/b"}
	if diff := cmp.Diff(want, f.paths()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestJobs_CheckpointDetailsWithSubtasks(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/j1/checkpoints/details/7",
		response{http.StatusOK, `{"id":7,"tasks":{"v1":{"status":"COMPLETED"}}}`})
	f.handle(http.MethodGet, "/v1/jobs/j1/checkpoints/details/7/subtasks/v1",
		response{http.StatusOK, `{"subtasks":[{"index":0}]}`})
	c := f.client(t)

	plain, err := c.Jobs.CheckpointDetails(context.Background(), "j1", 7, false)
	if err != nil {
		t.Fatalf("CheckpointDetails() error = %v", err)
	}
	if _, ok := plain["subtasks"]; ok {
		t.Error("Expected no subtasks without withSubtasks")
	}

	got, err := c.Jobs.CheckpointDetails(context.Background(), "j1", 7, true)
	if err != nil {
		t.Fatalf("CheckpointDetails() error = %v", err)
	}
	want := map[string]any{"v1": map[string]any{"subtasks": []any{map[string]any{"index": float64(0)}}}}
	if diff := cmp.Diff(want, got["subtasks"]); diff != "" {
		t.Errorf("subtasks mismatch (-want +got):\n%s", diff)
	}
}

func TestJobs_CheckpointIDsAndVertexIDs(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/j1/checkpoints", response{http.StatusOK, `{"history":[{"id":3},{"id":2}]}`})
	f.handle(http.MethodGet, "/v1/jobs/j1", response{http.StatusOK, `{"jid":"j1","vertices":[{"id":"v1"},{"id":"v2"}]}`})
	c := f.client(t)

	cids, err := c.Jobs.CheckpointIDs(context.Background(), "j1")
	if err != nil {
		t.Fatalf("CheckpointIDs() error = %v", err)
	}
	if diff := cmp.Diff([]int64{3, 2}, cids); diff != "" {
		t.Errorf("CheckpointIDs() mismatch (-want +got):\n%s", diff)
	}

	vids, err := c.Jobs.VertexIDs(context.Background(), "j1")
	if err != nil {
		t.Fatalf("VertexIDs() error = %v", err)
	}
	if diff := cmp.Diff([]string{"v1", "v2"}, vids); diff != "" {
		t.Errorf("VertexIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestJobs_Accumulators(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/j1/accumulators", response{http.StatusOK, `{"job-accumulators":[]}`})
	c := f.client(t)

	include := true
	c.Jobs.Accumulators(context.Background(), "j1", nil)
	c.Jobs.Accumulators(context.Background(), "j1", &include)

	reqs := f.recorded()
	if reqs[0].Query.Has("includeSerializedValue") {
		t.Errorf("Expected no includeSerializedValue, got %v", reqs[0].Query)
	}
	if reqs[1].Query.Get("includeSerializedValue") != "true" {
		t.Errorf("Expected includeSerializedValue=true, got %v", reqs[1].Query)
	}
}

func TestJobs_Plan(t *testing.T) {
	t.Parallel()
	f := newFakeCluster(t)
	f.handle(http.MethodGet, "/v1/jobs/j1/plan", response{http.StatusOK, `{"plan":{"jid":"j1","nodes":[]}}`})
	c := f.client(t)

	got, err := c.Jobs.Plan(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"jid": "j1", "nodes": []any{}}, got); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}
}
