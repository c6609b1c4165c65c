//go:build e2e

// Tests against a live cluster. The FLINK_* variables (or FLINK_CONFIG) pick
// the cluster; E2E_JAR points at a streaming job jar for the job lifecycle
// tests, e.g. examples/streaming/TopSpeedWindowing.jar from a distribution.
package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"flinkrest/internal/api"
	"flinkrest/internal/config"
	"flinkrest/internal/health"
	"flinkrest/internal/testutil"
	"flinkrest/pkg/flink"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func newClient(t *testing.T) *flink.Client {
	t.Helper()
	cfg, err := config.LoadFlinkConfig()
	if err != nil {
		t.Fatalf("Failed to load cluster config: %v", err)
	}
	c, err := flink.New(cfg.Target(), flink.WithTimeout(cfg.Timeout))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// Wait for at least one task manager so jobs can be scheduled
	testutil.MustWaitFor(t, func() bool {
		overview, err := c.ClusterSummary(context.Background())
		return err == nil && overview.TaskManagers > 0
	}, testutil.WithTimeout(60*time.Second), testutil.WithInterval(time.Second))
	return c
}

func jarPath(t *testing.T) string {
	t.Helper()
	path := os.Getenv("E2E_JAR")
	if path == "" {
		t.Skip("E2E_JAR not set")
	}
	return path
}

func TestCluster_Overview(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	overview, err := c.ClusterSummary(ctx)
	if err != nil {
		t.Fatalf("ClusterSummary() error = %v", err)
	}
	if overview.FlinkVersion == "" {
		t.Error("Expected a version in the overview")
	}
	if overview.SlotsTotal == 0 {
		t.Error("Expected task slots")
	}

	cfg, err := c.JobManager.Config(ctx)
	if err != nil {
		t.Fatalf("JobManager.Config() error = %v", err)
	}
	if _, ok := cfg["rest.port"]; !ok {
		t.Logf("rest.port not in job manager config (%d keys)", len(cfg))
	}

	ids, err := c.TaskManagers.IDs(ctx)
	if err != nil || len(ids) == 0 {
		t.Fatalf("TaskManagers.IDs() = %v, %v", ids, err)
	}
	if _, err := c.TaskManagers.Metrics(ctx, flink.MetricQuery{Names: []string{"Status.JVM.CPU.Load"}}); err != nil {
		t.Errorf("TaskManagers.Metrics() error = %v", err)
	}
}

func TestCluster_InvalidAggregationIsLocal(t *testing.T) {
	c := newClient(t)

	_, err := c.Jobs.Metrics(context.Background(), flink.MetricQuery{
		Names:        []string{"x"},
		Aggregations: []flink.AggregationMode{"median"},
	})
	if !errors.Is(err, flink.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestCluster_UnknownJob(t *testing.T) {
	c := newClient(t)

	_, err := c.Jobs.Get(context.Background(), "00000000000000000000000000000000")
	if flink.StatusCode(err) != http.StatusNotFound {
		t.Errorf("Expected 404, got %v", err)
	}
}

func TestCluster_JobLifecycle(t *testing.T) {
	c := newClient(t)
	path := jarPath(t)
	ctx := context.Background()

	parallelism := 1
	jobID, err := c.Jars.UploadAndRun(ctx, path, flink.RunOptions{Parallelism: &parallelism})
	if err != nil {
		t.Fatalf("UploadAndRun() error = %v", err)
	}
	t.Cleanup(func() {
		c.Jobs.Terminate(context.Background(), jobID)
		c.Jars.DeleteAll(context.Background())
	})

	testutil.MustWaitForJobState(t, c, jobID, "RUNNING", testutil.WithTimeout(60*time.Second), testutil.WithInterval(500*time.Millisecond))

	vertices, err := c.Jobs.VertexIDs(ctx, jobID)
	if err != nil || len(vertices) == 0 {
		t.Fatalf("VertexIDs() = %v, %v", vertices, err)
	}
	if _, err := c.Jobs.Vertex(jobID, vertices[0]).Subtasks().IDs(ctx); err != nil {
		t.Errorf("Subtasks().IDs() error = %v", err)
	}

	dir := os.Getenv("E2E_SAVEPOINT_DIR")
	if dir == "" {
		dir = "file:///tmp/flink-savepoints"
	}
	trigger, err := c.Jobs.CreateSavepoint(ctx, jobID, dir, false)
	if err != nil {
		t.Fatalf("CreateSavepoint() error = %v", err)
	}
	status, err := trigger.Await(ctx, flink.AwaitOptions{Timeout: 2 * time.Minute})
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if status.Operation == nil || status.Operation.Location == "" {
		t.Errorf("Expected a savepoint location, got %+v", status)
	}

	outcome, err := c.Jobs.Terminate(ctx, jobID)
	if err != nil || !outcome.Bool() {
		t.Fatalf("Terminate() = %v, %v", outcome, err)
	}
	testutil.MustWaitForJobState(t, c, jobID, "CANCELED", testutil.WithTimeout(30*time.Second))
}

func TestMonitor_AgainstCluster(t *testing.T) {
	c := newClient(t)

	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Cluster:       c,
		HealthChecker: health.NewChecker(c, 5*time.Second),
	}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /readyz, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/v1/overview")
	if err != nil {
		t.Fatalf("GET /v1/overview error = %v", err)
	}
	defer resp.Body.Close()
	var overview map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&overview); err != nil {
		t.Fatalf("Failed to decode overview: %v", err)
	}
	if _, ok := overview["flink-version"]; !ok {
		t.Errorf("Expected flink-version in %v", overview)
	}
}
