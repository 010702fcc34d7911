package guard

import (
	"errors"
	"fmt"
)

// Kind is the typed failure taxonomy shared by every guarded operation.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindInvalidArgument  Kind = "invalid-argument"
	KindNotFound         Kind = "not-found"
	KindPermissionDenied Kind = "permission-denied"
	KindInternal         Kind = "internal"
)

// Error carries a failure kind and a caller-safe message. Internal errors
// wrap their cause for server-side logging but expose only a generic message.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the failure classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Unauthenticated means no verified caller identity is attached.
func Unauthenticated(msg string) error {
	if msg == "" {
		msg = "authentication required"
	}
	return &Error{kind: KindUnauthenticated, msg: msg}
}

// InvalidArgument reports the first offending field of a payload.
func InvalidArgument(field, reason string) error {
	return &Error{kind: KindInvalidArgument, msg: fmt.Sprintf("%s: %s", field, reason)}
}

// NotFound means the referenced entity does not resolve to an existing,
// visible record.
func NotFound(what string) error {
	return &Error{kind: KindNotFound, msg: what + " not found"}
}

// PermissionDenied means the caller authenticated but fails the role or
// object-level check.
func PermissionDenied(msg string) error {
	if msg == "" {
		msg = "insufficient privileges"
	}
	return &Error{kind: KindPermissionDenied, msg: msg}
}

// Internal wraps an unexpected failure. The cause is preserved for the
// operational log; callers only ever see the generic message.
func Internal(err error) error {
	return &Error{kind: KindInternal, msg: "internal error", err: err}
}

// KindOf classifies any error: guard errors report their own kind, everything
// else is treated as internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.kind
	}
	return KindInternal
}

// coerce passes guard errors through untouched and wraps anything else as
// internal, so effects and predicates may return domain errors freely.
func coerce(err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	return Internal(err)
}
