package flink

import (
	"bytes"
	"encoding/json"
)

// Outcome is the result of operations whose only success signal is the
// shape of the response body.
type Outcome int

const (
	Failure Outcome = iota
	Success
)

func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// Bool reports whether the outcome is Success.
func (o Outcome) Bool() bool {
	return o == Success
}

// OutcomeFromBody applies the server convention for terminate and delete
// calls: an empty body, or an empty JSON object, means success. Anything
// else is a failure.
func OutcomeFromBody(body json.RawMessage) Outcome {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Success
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil && len(obj) == 0 {
		return Success
	}
	return Failure
}
