package contract

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrInvalidRequest = errors.New("invalid request")
	ErrDisabled       = errors.New("orchestrator is disabled")
	ErrResultNotFound = errors.New("orchestration result not found")
)

// ErrorKind classifies a capability invocation failure.
type ErrorKind string

const (
	ErrInvalidArgument    ErrorKind = "invalid_argument"
	ErrServiceUnavailable ErrorKind = "service_unavailable"
	ErrTimeout            ErrorKind = "timeout"
	ErrUpstream           ErrorKind = "upstream_error"
)

// CapabilityError is the only error shape a Capability returns. Messages are
// sanitized before they reach an outcome: no downstream bodies verbatim, no
// stack traces.
type CapabilityError struct {
	Kind    ErrorKind
	Message string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewCapabilityError(kind ErrorKind, format string, args ...any) *CapabilityError {
	return &CapabilityError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrorKindOf returns the kind of a CapabilityError, or ErrUpstream for any
// other error.
func ErrorKindOf(err error) ErrorKind {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Kind
	}
	return ErrUpstream
}
