package flink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"flinkrest/pkg/backoff"
	"time"
)

// Trigger kinds, as they appear in status URLs.
const (
	TriggerSavepoints = "savepoints"
	TriggerRescaling  = "rescaling"
)

// Queue states reported in status.id of an asynchronous operation.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// TriggerID is a server assigned operation id. The server may send it as a
// JSON string or a JSON number; both decode to the same text.
type TriggerID string

// UnmarshalJSON implements custom unmarshaling for TriggerID.
func (id *TriggerID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TriggerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("trigger id must be a string or a number, got %s", data)
	}
	*id = TriggerID(n.String())
	return nil
}

// Trigger refers to an asynchronous operation running on the cluster.
// It holds only addressing data; every status read is a fresh request.
type Trigger struct {
	exec   *Executor
	prefix string
	kind   string

	JobID string // empty for dataset deletions
	ID    string
}

func newJobTrigger(exec *Executor, prefix, kind, jobID string, id TriggerID) *Trigger {
	return &Trigger{exec: exec, prefix: prefix, kind: kind, JobID: jobID, ID: string(id)}
}

func newDatasetTrigger(exec *Executor, prefix string, id TriggerID) *Trigger {
	return &Trigger{exec: exec, prefix: prefix, ID: string(id)}
}

// Kind returns the operation type label, or "" for dataset deletions.
func (t *Trigger) Kind() string {
	return t.kind
}

// URL returns the status endpoint of the operation.
func (t *Trigger) URL() string {
	if t.JobID == "" {
		return fmt.Sprintf("%s/%s", t.prefix, t.ID)
	}
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix, t.JobID, t.kind, t.ID)
}

// Status reads the current operation status and returns it unchanged.
func (t *Trigger) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := t.exec.DoInto(ctx, &Request{URL: t.URL()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OperationStatus is the common shape of asynchronous operation results.
type OperationStatus struct {
	Status struct {
		ID string `json:"id"`
	} `json:"status"`
	Operation *Operation `json:"operation,omitempty"`
}

// Operation holds the outcome of a finished operation.
type Operation struct {
	Location     string        `json:"location,omitempty"`
	FailureCause *FailureCause `json:"failure-cause,omitempty"`
}

// FailureCause describes why an operation failed.
type FailureCause struct {
	Class      string `json:"class"`
	StackTrace string `json:"stack-trace"`
}

// Completed reports whether the server finished the operation.
func (s *OperationStatus) Completed() bool {
	return s.Status.ID == StatusCompleted
}

// Failed reports whether a finished operation carries a failure cause.
func (s *OperationStatus) Failed() bool {
	return s.Operation != nil && s.Operation.FailureCause != nil
}

// Poll reads the current operation status in its typed form.
func (t *Trigger) Poll(ctx context.Context) (*OperationStatus, error) {
	var out OperationStatus
	if err := t.exec.DoInto(ctx, &Request{URL: t.URL()}, &out); err != nil {
		return nil, err
	}
	if t.exec.metrics != nil {
		t.exec.metrics.RecordTriggerPoll(ctx, t.kindLabel(), out.Status.ID)
	}
	return &out, nil
}

func (t *Trigger) kindLabel() string {
	if t.kind == "" {
		return "dataset-deletion"
	}
	return t.kind
}

// AwaitOptions controls Await.
type AwaitOptions struct {
	Backoff *backoff.Config // delay between polls (default: backoff defaults)
	Timeout time.Duration   // 0 means wait until ctx ends
}

// Await polls the operation until the server reports it completed.
// A completed operation with a failure cause returns the status together
// with an ErrConvention error.
func (t *Trigger) Await(ctx context.Context, opts AwaitOptions) (*OperationStatus, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger := t.exec.logger.With("trigger", t.ID, "kind", t.kindLabel(), "jobId", t.JobID)

	for attempt := 1; ; attempt++ {
		status, err := t.Poll(ctx)
		if err != nil {
			return nil, err
		}
		if status.Completed() {
			if status.Failed() {
				body, _ := json.Marshal(status)
				return status, conventionError("trigger.await",
					fmt.Sprintf("operation %s failed: %s", t.ID, status.Operation.FailureCause.Class), body)
			}
			logger.Debug("Operation completed", "polls", attempt)
			return status, nil
		}

		wait := backoff.Exponential(attempt, opts.Backoff)
		logger.Debug("Operation in progress", "state", status.Status.ID, "backoff", wait)
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(wait):
		}
	}
}
