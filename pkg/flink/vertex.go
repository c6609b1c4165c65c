package flink

import (
	"context"
	"fmt"
	"strconv"
)

// VertexClient covers /jobs/:jobid/vertices/:vertexid.
type VertexClient struct {
	exec   *Executor
	prefix string

	JobID    string
	VertexID string
}

// Prefix returns the facet's URL prefix.
func (v *VertexClient) Prefix() string {
	return v.prefix
}

// Subtasks returns the facet of the vertex subtasks.
func (v *VertexClient) Subtasks() *SubtasksClient {
	return &SubtasksClient{exec: v.exec, prefix: v.prefix + "/subtasks"}
}

// Details returns the vertex details, including a summary per subtask.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid
func (v *VertexClient) Details(ctx context.Context) (map[string]any, error) {
	return v.exec.object(ctx, &Request{URL: v.prefix})
}

// Backpressure returns back-pressure information. The server samples lazily,
// so the first call may report a deprecated status.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/backpressure
func (v *VertexClient) Backpressure(ctx context.Context) (map[string]any, error) {
	return v.exec.object(ctx, &Request{URL: v.prefix + "/backpressure"})
}

// MetricNames lists the metrics of the vertex.
func (v *VertexClient) MetricNames(ctx context.Context) ([]string, error) {
	return v.exec.metricNames(ctx, v.prefix+"/metrics")
}

// Metrics returns metric values of the vertex. Nil names reads every metric.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/metrics
func (v *VertexClient) Metrics(ctx context.Context, names []string) (MetricValues, error) {
	return v.exec.metricValues(ctx, v.prefix+"/metrics", names)
}

// SubtaskTimes returns time-related information for every subtask.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/subtasktimes
func (v *VertexClient) SubtaskTimes(ctx context.Context) (map[string]any, error) {
	return v.exec.object(ctx, &Request{URL: v.prefix + "/subtasktimes"})
}

// TaskManagers returns task information aggregated by task manager.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/taskmanagers
func (v *VertexClient) TaskManagers(ctx context.Context) (map[string]any, error) {
	return v.exec.object(ctx, &Request{URL: v.prefix + "/taskmanagers"})
}

// Watermarks returns the watermarks of every subtask.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/watermarks
func (v *VertexClient) Watermarks(ctx context.Context) (MetricValues, error) {
	var entries []metricEntry
	if err := v.exec.DoInto(ctx, &Request{URL: v.prefix + "/watermarks"}, &entries); err != nil {
		return nil, err
	}
	out := make(MetricValues, len(entries))
	for _, m := range entries {
		out[m.ID] = metricValue(m.Value)
	}
	return out, nil
}

// SubtasksClient covers /jobs/:jobid/vertices/:vertexid/subtasks.
type SubtasksClient struct {
	exec   *Executor
	prefix string
}

// Prefix returns the facet's URL prefix.
func (s *SubtasksClient) Prefix() string {
	return s.prefix
}

// IDs lists the subtask indexes, as reported by the accumulators endpoint.
func (s *SubtasksClient) IDs(ctx context.Context) ([]int, error) {
	var subtasks []struct {
		Subtask int `json:"subtask"`
	}
	if err := s.exec.DoField(ctx, &Request{URL: s.prefix + "/accumulators"}, "subtasks", &subtasks); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(subtasks))
	for _, st := range subtasks {
		ids = append(ids, st.Subtask)
	}
	return ids, nil
}

func (s *SubtasksClient) idStrings(ctx context.Context) ([]string, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return out, nil
}

// Accumulators returns the user accumulators of every subtask.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/subtasks/accumulators
func (s *SubtasksClient) Accumulators(ctx context.Context) (map[string]any, error) {
	return s.exec.object(ctx, &Request{URL: s.prefix + "/accumulators"})
}

// MetricNames lists the metrics available across subtasks.
func (s *SubtasksClient) MetricNames(ctx context.Context) ([]string, error) {
	return s.exec.metricNames(ctx, s.prefix+"/metrics")
}

// Metrics returns aggregated metrics across subtasks. q.IDs holds subtask
// indexes in decimal.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/subtasks/metrics
func (s *SubtasksClient) Metrics(ctx context.Context, q MetricQuery) (AggregatedMetrics, error) {
	return s.exec.aggregatedMetrics(ctx, s.prefix+"/metrics", "subtasks", q, s.idStrings)
}

// Get returns the current execution attempt of a subtask.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/subtasks/:subtaskindex
func (s *SubtasksClient) Get(ctx context.Context, index int) (map[string]any, error) {
	return s.exec.object(ctx, &Request{URL: fmt.Sprintf("%s/%d", s.prefix, index)})
}

// Attempt returns one execution attempt of a subtask. A nil attempt returns
// the current one.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/subtasks/:subtaskindex/attempts/:attempt
func (s *SubtasksClient) Attempt(ctx context.Context, index int, attempt *int) (map[string]any, error) {
	if attempt == nil {
		return s.Get(ctx, index)
	}
	return s.exec.object(ctx, &Request{URL: fmt.Sprintf("%s/%d/attempts/%d", s.prefix, index, *attempt)})
}

// AttemptAccumulators returns the accumulators of one execution attempt.
// A nil attempt looks up the current attempt first.
//
// Endpoint: GET /jobs/:jobid/vertices/:vertexid/subtasks/:subtaskindex/attempts/:attempt/accumulators
func (s *SubtasksClient) AttemptAccumulators(ctx context.Context, index int, attempt *int) (map[string]any, error) {
	n := 0
	if attempt != nil {
		n = *attempt
	} else {
		var current struct {
			Attempt int `json:"attempt"`
		}
		if err := s.exec.DoInto(ctx, &Request{URL: fmt.Sprintf("%s/%d", s.prefix, index)}, &current); err != nil {
			return nil, err
		}
		n = current.Attempt
	}
	return s.exec.object(ctx, &Request{URL: fmt.Sprintf("%s/%d/attempts/%d/accumulators", s.prefix, index, n)})
}
