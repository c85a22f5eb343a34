package ioptron

import (
	"errors"
	"fmt"
)

var (
	ErrTransport             = errors.New("ioptron: transport failure")
	ErrMalformedResponse     = errors.New("ioptron: malformed response")
	ErrCommandRejected       = errors.New("ioptron: command rejected by mount")
	ErrCapabilityUnsupported = errors.New("ioptron: operation not supported by mount")
	ErrValidation            = errors.New("ioptron: invalid argument")
	ErrBusy                  = errors.New("ioptron: another command is in flight")
	ErrNotConnected          = errors.New("ioptron: mount is not connected")
)

// TransportErrorKind classifies link failures.
type TransportErrorKind uint8

const (
	ConnectFailed TransportErrorKind = iota
	IoFailed
	Timeout
)

func (k TransportErrorKind) String() string {
	switch k {
	case ConnectFailed:
		return "connect failed"
	case IoFailed:
		return "i/o failed"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

type TransportError struct {
	Kind TransportErrorKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ioptron: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ioptron: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Fatal reports whether the link can no longer be trusted.
// A timeout only means the device stayed silent.
func (e *TransportError) Fatal() bool { return e.Kind != Timeout }

type MalformedResponseError struct {
	Raw      string
	Template string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("ioptron: malformed response %q (expected %q)", e.Raw, e.Template)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

type CapabilityError struct {
	Operation Operation
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("ioptron: %s: not supported by this mount", e.Operation)
}

func (e *CapabilityError) Is(target error) bool { return target == ErrCapabilityUnsupported }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ioptron: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func inRange[T int | int64 | float64](field string, v, lo, hi T) error {
	if v < lo || v > hi || v != v { // v != v catches NaN
		return invalid(field, "%v out of range [%v, %v]", v, lo, hi)
	}
	return nil
}
