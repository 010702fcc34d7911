// Package guard implements the uniform skeleton every privileged operation
// follows: authenticate, validate, authorize, effect, audit, respond. The
// skeleton lives in one generic combinator; endpoints supply small effect
// closures instead of repeating the pipeline.
package guard

import (
	"context"
	"errors"

	"safetrack.org/internal/audit"
	"safetrack.org/internal/auth"
)

// Caller is the authenticated principal with its role resolved at
// authorization time. The role is re-read from the record store per call.
type Caller struct {
	UID  string
	Role auth.Role
}

// Runner holds the collaborators shared by all operations: the permission
// resolver and the best-effort audit recorder. Both are injected explicitly;
// there is no ambient state.
type Runner struct {
	resolver *auth.Resolver
	recorder *audit.Recorder
}

// NewRunner wires a runner. The recorder may be nil (audit disabled).
func NewRunner(resolver *auth.Resolver, recorder *audit.Recorder) (*Runner, error) {
	if resolver == nil {
		return nil, errors.New("guard: resolver is required")
	}
	return &Runner{resolver: resolver, recorder: recorder}, nil
}

// Operation describes one guarded endpoint. Validate and Authorize are
// optional; a nil Authorize means any authenticated caller may proceed.
type Operation[Req, Resp any] struct {
	// Name doubles as the audit action tag, e.g. "incident.create".
	Name string

	// Validate checks the payload shape. It must be side-effect free and
	// should return an invalid-argument error naming the first bad field.
	Validate func(req Req) error

	// Authorize is evaluated with the caller's freshly resolved role.
	Authorize Predicate[Req]

	// Effect performs exactly one logical mutation or read.
	Effect func(ctx context.Context, c Caller, req Req) (Resp, error)

	// Details supplies the audit payload for the success path. Nil records
	// an entry with empty details.
	Details func(req Req, resp Resp) map[string]any
}

// Run executes the pipeline. Ordering is part of the contract:
// an unauthenticated call fails before validation and before any store
// access; validation and authorization failures abort with no mutation and
// no audit entry; the audit append happens only after a successful effect
// and never fails the operation.
func Run[Req, Resp any](ctx context.Context, r *Runner, op Operation[Req, Resp], req Req) (Resp, error) {
	var zero Resp

	uid, ok := auth.CallerFromContext(ctx)
	if !ok {
		return zero, Unauthenticated("")
	}

	if op.Validate != nil {
		if err := op.Validate(req); err != nil {
			return zero, coerce(err)
		}
	}

	role, err := r.resolver.Resolve(ctx, uid)
	if err != nil {
		return zero, Internal(err)
	}
	caller := Caller{UID: uid, Role: role}

	if op.Authorize != nil {
		allowed, err := op.Authorize(ctx, caller, req)
		if err != nil {
			return zero, coerce(err)
		}
		if !allowed {
			return zero, PermissionDenied("")
		}
	}

	resp, err := op.Effect(ctx, caller, req)
	if err != nil {
		return zero, coerce(err)
	}

	if r.recorder != nil {
		var details map[string]any
		if op.Details != nil {
			details = op.Details(req, resp)
		}
		r.recorder.Record(ctx, uid, op.Name, details)
	}

	return resp, nil
}
