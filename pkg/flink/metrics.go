package flink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// AggregationMode selects an aggregate computed by the server across
// jobs, task managers or subtasks.
type AggregationMode string

const (
	AggregateMin AggregationMode = "min"
	AggregateMax AggregationMode = "max"
	AggregateSum AggregationMode = "sum"
	AggregateAvg AggregationMode = "avg"
)

// AllAggregationModes is used when a caller does not pick any mode.
var AllAggregationModes = []AggregationMode{AggregateMin, AggregateMax, AggregateSum, AggregateAvg}

// ValidateAggregationModes checks modes against the supported set and returns
// the list to send. An empty list selects every mode.
func ValidateAggregationModes(modes []AggregationMode) ([]AggregationMode, error) {
	if len(modes) == 0 {
		return AllAggregationModes, nil
	}
	for _, m := range modes {
		switch m {
		case AggregateMin, AggregateMax, AggregateSum, AggregateAvg:
		default:
			return nil, validationError("agg", fmt.Sprintf(
				"The provided aggregation modes list contains invalid value. Supported aggregation modes: %s; given list: %s",
				joinModes(AllAggregationModes), joinModes(modes)))
		}
	}
	return modes, nil
}

func joinModes(modes []AggregationMode) string {
	s := make([]string, len(modes))
	for i, m := range modes {
		s[i] = string(m)
	}
	return strings.Join(s, ",")
}

// MetricValues maps a metric id to its current value. When the server lists
// the same id twice the later entry is kept.
type MetricValues map[string]string

// AggregatedMetric keeps every aggregate the server returned for one metric.
// Aggregates that were not requested are nil.
type AggregatedMetric struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
	Avg *float64 `json:"avg,omitempty"`
	Sum *float64 `json:"sum,omitempty"`
}

// AggregatedMetrics maps a metric id to its aggregates. When the server lists
// the same id twice the later entry is kept.
type AggregatedMetrics map[string]AggregatedMetric

// MetricQuery selects aggregated metrics. Nil Names fetches every metric the
// server knows; nil IDs selects every job, task manager or subtask.
type MetricQuery struct {
	Names        []string
	Aggregations []AggregationMode
	IDs          []string
}

type metricEntry struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

type aggregatedEntry struct {
	ID string `json:"id"`
	AggregatedMetric
}

// metricValue renders a metric value as text. The server sends strings, but
// plain numbers are accepted too.
func metricValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// metricNames lists the metric ids available at endpoint.
func (e *Executor) metricNames(ctx context.Context, endpoint string) ([]string, error) {
	var entries []metricEntry
	if err := e.DoInto(ctx, &Request{URL: endpoint}, &entries); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, m := range entries {
		names = append(names, m.ID)
	}
	return names, nil
}

// metricValues reads the current value of the named metrics at endpoint,
// listing every available name first when names is nil.
func (e *Executor) metricValues(ctx context.Context, endpoint string, names []string) (MetricValues, error) {
	if names == nil {
		var err error
		if names, err = e.metricNames(ctx, endpoint); err != nil {
			return nil, err
		}
	}

	var entries []metricEntry
	req := &Request{URL: endpoint, Query: url.Values{"get": {strings.Join(names, ",")}}}
	if err := e.DoInto(ctx, req, &entries); err != nil {
		return nil, err
	}
	out := make(MetricValues, len(entries))
	for _, m := range entries {
		out[m.ID] = metricValue(m.Value)
	}
	return out, nil
}

// aggregatedMetrics queries endpoint with get/agg/<selector> parameters.
// listIDs supplies the selector values when q.IDs is nil.
func (e *Executor) aggregatedMetrics(ctx context.Context, endpoint, selector string, q MetricQuery,
	listIDs func(context.Context) ([]string, error)) (AggregatedMetrics, error) {
	modes, err := ValidateAggregationModes(q.Aggregations)
	if err != nil {
		return nil, err
	}

	names := q.Names
	if names == nil {
		if names, err = e.metricNames(ctx, endpoint); err != nil {
			return nil, err
		}
	}
	ids := q.IDs
	if ids == nil {
		if ids, err = listIDs(ctx); err != nil {
			return nil, err
		}
	}

	query := url.Values{
		"get":    {strings.Join(names, ",")},
		"agg":    {joinModes(modes)},
		selector: {strings.Join(ids, ",")},
	}
	var entries []aggregatedEntry
	if err := e.DoInto(ctx, &Request{URL: endpoint, Query: query}, &entries); err != nil {
		return nil, err
	}
	out := make(AggregatedMetrics, len(entries))
	for _, m := range entries {
		out[m.ID] = m.AggregatedMetric
	}
	return out, nil
}
