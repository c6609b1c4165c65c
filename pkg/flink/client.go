package flink

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client is the entry point for one cluster. The facets share the client's
// Executor and are built once in New.
type Client struct {
	*Executor

	Jobs         *JobsClient
	Jars         *JarsClient
	JobManager   *JobManagerClient
	TaskManagers *TaskManagersClient
}

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder
	timeout    time.Duration
}

// Option configures New.
type Option func(*options)

// WithHTTPClient replaces the default HTTP client. The caller's client is used
// as is, so Target.InsecureSkipVerify and WithTimeout do not apply to it.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger used for request debug logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records every round trip and trigger poll through m.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithTimeout sets the timeout of the default HTTP client. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New validates target and builds a client for it.
func New(target Target, opts ...Option) (*Client, error) {
	target = target.withDefaults()
	if err := target.validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = defaultHTTPClient(target, o.timeout)
	}

	exec := newExecutor(target, o.httpClient, o.logger, o.metrics)
	return &Client{
		Executor:     exec,
		Jobs:         &JobsClient{exec: exec, prefix: exec.URL("/jobs")},
		Jars:         &JarsClient{exec: exec, prefix: exec.URL("/jars")},
		JobManager:   &JobManagerClient{exec: exec, prefix: exec.URL("/jobmanager")},
		TaskManagers: &TaskManagersClient{exec: exec, prefix: exec.URL("/taskmanagers")},
	}, nil
}

func defaultHTTPClient(target Target, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if target.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per target
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Target returns the connection target the client was built with.
func (c *Client) Target() Target {
	return c.target
}

// APIURL returns the API root, e.g. http://localhost:8081/v1.
func (c *Client) APIURL() string {
	return c.base
}

// Overview returns the cluster overview.
//
// Endpoint: GET /overview
func (c *Client) Overview(ctx context.Context) (map[string]any, error) {
	return c.object(ctx, &Request{URL: c.URL("/overview")})
}

// ClusterOverview is the typed form of GET /overview.
type ClusterOverview struct {
	TaskManagers   int    `json:"taskmanagers"`
	SlotsTotal     int    `json:"slots-total"`
	SlotsAvailable int    `json:"slots-available"`
	JobsRunning    int    `json:"jobs-running"`
	JobsFinished   int    `json:"jobs-finished"`
	JobsCancelled  int    `json:"jobs-cancelled"`
	JobsFailed     int    `json:"jobs-failed"`
	FlinkVersion   string `json:"flink-version"`
	FlinkCommit    string `json:"flink-commit"`
}

// ClusterSummary returns the cluster overview decoded into ClusterOverview.
func (c *Client) ClusterSummary(ctx context.Context) (*ClusterOverview, error) {
	var out ClusterOverview
	if err := c.DoInto(ctx, &Request{URL: c.URL("/overview")}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports whether the cluster answers its overview endpoint.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.Do(ctx, &Request{URL: c.URL("/overview")})
	return err
}

// Config returns the dashboard configuration.
//
// Endpoint: GET /config
func (c *Client) Config(ctx context.Context) (map[string]any, error) {
	return c.object(ctx, &Request{URL: c.URL("/config")})
}

// DeleteCluster shuts the cluster down.
//
// Endpoint: DELETE /cluster
func (c *Client) DeleteCluster(ctx context.Context) (map[string]any, error) {
	return c.object(ctx, &Request{URL: c.URL("/cluster"), Method: http.MethodDelete})
}

// Datasets lists the cluster data sets.
//
// Endpoint: GET /datasets
func (c *Client) Datasets(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.DoField(ctx, &Request{URL: c.URL("/datasets")}, "dataSets", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDataset starts deleting a cluster data set. The returned trigger
// reads the deletion status.
//
// Endpoint: DELETE /datasets/:datasetid
func (c *Client) DeleteDataset(ctx context.Context, datasetID string) (*Trigger, error) {
	var id TriggerID
	req := &Request{
		URL:    c.URL("/datasets/" + datasetID),
		Method: http.MethodDelete,
		Expect: http.StatusAccepted,
	}
	if err := c.DoField(ctx, req, "request-id", &id); err != nil {
		return nil, err
	}
	return newDatasetTrigger(c.Executor, c.URL("/datasets/delete"), id), nil
}

// DatasetTrigger rebuilds the trigger of an earlier dataset deletion.
func (c *Client) DatasetTrigger(triggerID string) *Trigger {
	return newDatasetTrigger(c.Executor, c.URL("/datasets/delete"), TriggerID(triggerID))
}

// UploadMavenJar is not implemented.
func (c *Client) UploadMavenJar(context.Context, string) (map[string]any, error) {
	return nil, unsupportedError("UploadMavenJar")
}

// SubmitJob is not implemented; use Jars.Run on an uploaded archive.
func (c *Client) SubmitJob(context.Context, map[string]any) (string, error) {
	return "", unsupportedError("SubmitJob")
}

func (c *Client) String() string {
	return fmt.Sprintf("flink.Client(%s)", c.base)
}
