package dispatch

import (
	"encoding/json"

	"github.com/edumesh/eduagent/pkg/errmodel"
)

// Result is the tagged outcome of a tool call: either a payload or a compact
// error. Callers always receive a Result; the dispatcher never returns a bare
// Go error to the protocol layer.
type Result struct {
	payload map[string]any
	err     *errmodel.Error
}

// Ok wraps a successful payload.
func Ok(payload map[string]any) Result {
	if payload == nil {
		payload = map[string]any{}
	}
	return Result{payload: payload}
}

// Fail wraps an error outcome.
func Fail(err *errmodel.Error) Result {
	if err == nil {
		err = errmodel.System("internal", "unknown error", nil, nil)
	}
	return Result{err: err}
}

// IsErr reports whether the result carries an error.
func (r Result) IsErr() bool { return r.err != nil }

// Err returns the error variant, nil for Ok results.
func (r Result) Err() *errmodel.Error { return r.err }

// Payload returns the payload variant, nil for error results.
func (r Result) Payload() map[string]any { return r.payload }

// Text renders the result as protocol content text: indented JSON for
// payloads, "Error: ..." for errors.
func (r Result) Text() string {
	if r.err != nil {
		return "Error: " + r.err.Error()
	}
	b, err := json.MarshalIndent(r.payload, "", "  ")
	if err != nil {
		return "Error: " + errmodel.System("encode", "result not serializable", nil, err).Error()
	}
	return string(b)
}
