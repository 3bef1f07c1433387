// Package apperr defines the closed set of error kinds netwatch
// distinguishes between (spec.md §7): Validation, NotFound, TransientIO,
// Invariant, and Fatal. Periodic tasks branch on Kind to decide whether to
// retry next tick; HTTP handlers branch on Kind to pick a status code.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the closed category an Error belongs to.
type Kind int

const (
	// KindValidation marks malformed input: bad domain string,
	// out-of-range config, unknown sort key. No state is mutated.
	KindValidation Kind = iota
	// KindNotFound marks a missing entity lookup by id.
	KindNotFound
	// KindTransientIO marks a retryable failure: store busy, sampler
	// timeout. Periodic tasks swallow these and retry next tick.
	KindTransientIO
	// KindInvariant marks a detected invariant violation. The task
	// aborts its current unit of work but keeps running.
	KindInvariant
	// KindFatal marks a failure that must abort startup.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTransientIO:
		return "transient_io"
	case KindInvariant:
		return "invariant"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the typed error netwatch passes across component boundaries.
// CorrelationID is stamped once, when the Error is constructed (never
// regenerated on rewrap), so a
// caller-facing message and a server log line can be joined on it without
// leaking internal paths or descriptions (spec.md §7).
type Error struct {
	Kind          Kind
	Message       string
	CorrelationID string
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s [%s] (%s): %v", e.Kind, e.CorrelationID, e.Message, e.cause)
	}
	return fmt.Sprintf("%s [%s] (%s)", e.Kind, e.CorrelationID, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{
		Kind:          kind,
		Message:       msg,
		CorrelationID: uuid.NewString(),
		cause:         cause,
	}
}

// Validation builds a KindValidation error.
func Validation(msg string) *Error { return newErr(KindValidation, msg, nil) }

// Validationf builds a KindValidation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return newErr(KindValidation, fmt.Sprintf(format, args...), nil)
}

// NotFound builds a KindNotFound error.
func NotFound(msg string) *Error { return newErr(KindNotFound, msg, nil) }

// TransientIO wraps cause as a KindTransientIO error.
func TransientIO(msg string, cause error) *Error { return newErr(KindTransientIO, msg, cause) }

// Invariant wraps cause as a KindInvariant error.
func Invariant(msg string, cause error) *Error { return newErr(KindInvariant, msg, cause) }

// Fatal wraps cause as a KindFatal error.
func Fatal(msg string, cause error) *Error { return newErr(KindFatal, msg, cause) }

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindTransientIO for
// untyped errors so periodic tasks retry rather than treat the unknown
// error as fatal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransientIO
}

// Public renders the caller-facing form of err: a generic category plus a
// correlation id, never the internal message or cause (spec.md §7).
func Public(err error) (category string, correlationID string) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind.String(), ae.CorrelationID
	}
	return KindTransientIO.String(), uuid.NewString()
}
