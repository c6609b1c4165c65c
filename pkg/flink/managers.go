package flink

import (
	"context"
)

// JobManagerClient covers /jobmanager.
type JobManagerClient struct {
	exec   *Executor
	prefix string
}

// Prefix returns the facet's URL prefix.
func (m *JobManagerClient) Prefix() string {
	return m.prefix
}

// Config returns the cluster configuration as key/value pairs.
//
// Endpoint: GET /jobmanager/config
func (m *JobManagerClient) Config(ctx context.Context) (map[string]string, error) {
	var entries []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := m.exec.DoInto(ctx, &Request{URL: m.prefix + "/config"}, &entries); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

// Logs lists the job manager log files.
//
// Endpoint: GET /jobmanager/logs
func (m *JobManagerClient) Logs(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := m.exec.DoField(ctx, &Request{URL: m.prefix + "/logs"}, "logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Log returns the content of one log file.
//
// Endpoint: GET /jobmanager/logs/:logfile
func (m *JobManagerClient) Log(ctx context.Context, file string) (string, error) {
	return m.exec.DoText(ctx, &Request{URL: m.prefix + "/logs/" + file})
}

// MetricNames lists the job manager metrics.
func (m *JobManagerClient) MetricNames(ctx context.Context) ([]string, error) {
	return m.exec.metricNames(ctx, m.prefix+"/metrics")
}

// Metrics returns job manager metric values. Nil names reads every metric.
//
// Endpoint: GET /jobmanager/metrics
func (m *JobManagerClient) Metrics(ctx context.Context, names []string) (MetricValues, error) {
	return m.exec.metricValues(ctx, m.prefix+"/metrics", names)
}

// TaskManagersClient covers /taskmanagers.
type TaskManagersClient struct {
	exec   *Executor
	prefix string
}

// Prefix returns the facet's URL prefix.
func (m *TaskManagersClient) Prefix() string {
	return m.prefix
}

// All lists the task managers.
//
// Endpoint: GET /taskmanagers
func (m *TaskManagersClient) All(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := m.exec.DoField(ctx, &Request{URL: m.prefix}, "taskmanagers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IDs lists the task manager ids.
func (m *TaskManagersClient) IDs(ctx context.Context) ([]string, error) {
	var tms []struct {
		ID string `json:"id"`
	}
	if err := m.exec.DoField(ctx, &Request{URL: m.prefix}, "taskmanagers", &tms); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tms))
	for _, tm := range tms {
		ids = append(ids, tm.ID)
	}
	return ids, nil
}

// MetricNames lists the metrics available across task managers.
func (m *TaskManagersClient) MetricNames(ctx context.Context) ([]string, error) {
	return m.exec.metricNames(ctx, m.prefix+"/metrics")
}

// Metrics returns aggregated metrics across task managers.
//
// Endpoint: GET /taskmanagers/metrics
func (m *TaskManagersClient) Metrics(ctx context.Context, q MetricQuery) (AggregatedMetrics, error) {
	return m.exec.aggregatedMetrics(ctx, m.prefix+"/metrics", "taskmanagers", q, m.IDs)
}

// Get returns the details of a task manager.
//
// Endpoint: GET /taskmanagers/:taskmanagerid
func (m *TaskManagersClient) Get(ctx context.Context, id string) (map[string]any, error) {
	return m.exec.object(ctx, &Request{URL: m.prefix + "/" + id})
}

// Logs lists the log files of a task manager.
//
// Endpoint: GET /taskmanagers/:taskmanagerid/logs
func (m *TaskManagersClient) Logs(ctx context.Context, id string) ([]map[string]any, error) {
	var out []map[string]any
	if err := m.exec.DoField(ctx, &Request{URL: m.prefix + "/" + id + "/logs"}, "logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskManagerMetrics returns metric values of one task manager. Nil names
// reads every metric.
//
// Endpoint: GET /taskmanagers/:taskmanagerid/metrics
func (m *TaskManagersClient) TaskManagerMetrics(ctx context.Context, id string, names []string) (MetricValues, error) {
	return m.exec.metricValues(ctx, m.prefix+"/"+id+"/metrics", names)
}

// ThreadDump returns the stringified thread info keyed by thread name.
//
// Endpoint: GET /taskmanagers/:taskmanagerid/thread-dump
func (m *TaskManagersClient) ThreadDump(ctx context.Context, id string) (map[string]string, error) {
	var threads []struct {
		ThreadName string `json:"threadName"`
		Info       string `json:"stringifiedThreadInfo"`
	}
	if err := m.exec.DoField(ctx, &Request{URL: m.prefix + "/" + id + "/thread-dump"}, "threadInfos", &threads); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(threads))
	for _, t := range threads {
		out[t.ThreadName] = t.Info
	}
	return out, nil
}
