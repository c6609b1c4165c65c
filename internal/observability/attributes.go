// Package observability provides metrics for the cluster client and the
// monitor service.
package observability

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod  = "method"
	attrPath    = "path"
	attrStatus  = "status"
	attrCluster = "cluster"
	attrKind    = "kind"
	attrState   = "state"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	// /v1/jobs/abc123/vertices/def -> /v1/jobs/{jobId}/vertices/{vertexId}
	return attribute.String(attrPath, normalizePath(path))
}

func statusAttr(code int) attribute.KeyValue {
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	group := fmt.Sprintf("%dxx", code/100)
	return attribute.String(attrStatus, group)
}

func clusterAttr(name string) attribute.KeyValue {
	return attribute.String(attrCluster, name)
}

func kindAttr(kind string) attribute.KeyValue {
	return attribute.String(attrKind, kind)
}

func stateAttr(state string) attribute.KeyValue {
	if state == "" {
		state = "unknown"
	}
	return attribute.String(attrState, state)
}

// Segments whose successor is an identifier, and the placeholder used for it.
var idPlaceholders = map[string]string{
	"jobs":         "{jobId}",
	"vertices":     "{vertexId}",
	"taskmanagers": "{taskManagerId}",
	"jars":         "{jarId}",
	"datasets":     "{datasetId}",
	"savepoints":   "{triggerId}",
	"rescaling":    "{triggerId}",
	"delete":       "{triggerId}",
	"subtasks":     "{subtask}",
	"attempts":     "{attempt}",
	"details":      "{checkpointId}",
	"logs":         "{logFile}",
}

// Fixed sub-resources that can follow a collection segment.
var staticSegments = map[string]bool{
	"overview":     true,
	"metrics":      true,
	"upload":       true,
	"config":       true,
	"accumulators": true,
	"delete":       true,
}

// normalizePath replaces identifier segments with placeholders.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		placeholder, ok := idPlaceholders[segments[i-1]]
		if !ok || segments[i] == "" || staticSegments[segments[i]] {
			continue
		}
		segments[i] = placeholder
	}
	return strings.Join(segments, "/")
}
