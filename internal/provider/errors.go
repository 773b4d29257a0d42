package provider

import (
	"errors"
	"fmt"
)

// ErrNotFound means the vendor answered but had no data for the request.
var ErrNotFound = errors.New("not found")

// Error is a failure raised by a specific vendor adapter.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error for provider name and operation op.
func Errorf(name, op, format string, args ...any) error {
	return &Error{Provider: name, Op: op, Err: fmt.Errorf(format, args...)}
}

// NotFound builds an *Error wrapping ErrNotFound.
func NotFound(name, op, what string) error {
	return &Error{Provider: name, Op: op, Err: fmt.Errorf("%w: %s", ErrNotFound, what)}
}

// CapabilityError reports that no configured provider offers an optional
// operation. It is never retried.
type CapabilityError struct {
	Capability  string
	Remediation string
}

func (e *CapabilityError) Error() string {
	if e.Remediation == "" {
		return fmt.Sprintf("%s is not supported by any configured provider", e.Capability)
	}
	return fmt.Sprintf("%s is not supported by any configured provider: %s", e.Capability, e.Remediation)
}

// IsCapability reports whether err is a *CapabilityError.
func IsCapability(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}
