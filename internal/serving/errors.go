package serving

import (
	"errors"
	"fmt"
)

// Stable error kinds returned to callers. External clients branch on these,
// so the strings are part of the API.
const (
	KindInput     = "input"     // caller's fault, never retried
	KindStore     = "store"     // backing cache unreachable or timed out
	KindInference = "inference" // model failure, no partial prediction
	KindInternal  = "internal"
)

// Error is the single structured error shape a request can end in.
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string { return e.Kind + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Kind extracts the stable kind from err, or KindInternal for errors that
// did not come out of the pipeline.
func Kind(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func failf(kind string, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
