// Package errors defines the request-scoped error kinds surfaced by echobin.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Each maps to a wire name returned in {"error": "<kind>"}.
var (
	// ErrBodyDecode indicates a content-type/body mismatch or a malformed
	// JSON, multipart or urlencoded payload.
	ErrBodyDecode = errors.New("body decode error")

	// ErrBodyTooLarge indicates the body exceeded the configured maximum.
	ErrBodyTooLarge = errors.New("body too large")

	// ErrAuthRejected indicates an authentication check failed.
	ErrAuthRejected = errors.New("auth rejected")
)

// Wire names of the error kinds.
const (
	KindBodyDecode   = "BodyDecodeError"
	KindBodyTooLarge = "BodyTooLarge"
	KindAuthRejected = "AuthRejected"
)

// KindError wraps an error kind with the operation that produced it.
type KindError struct {
	Op     string // operation that failed, e.g. "json", "multipart.part"
	Detail string // human readable detail
	Err    error  // one of the sentinel kinds
}

// Error implements the error interface.
func (e *KindError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Detail)
}

// Unwrap returns the underlying kind.
func (e *KindError) Unwrap() error {
	return e.Err
}

// Decode returns a body decode error for op.
func Decode(op, format string, args ...any) error {
	return &KindError{Op: op, Detail: fmt.Sprintf(format, args...), Err: ErrBodyDecode}
}

// Kind returns the wire name of err, or "" when err is not a known kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBodyTooLarge):
		return KindBodyTooLarge
	case errors.Is(err, ErrAuthRejected):
		return KindAuthRejected
	case errors.Is(err, ErrBodyDecode):
		return KindBodyDecode
	default:
		return ""
	}
}
