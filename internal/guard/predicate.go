package guard

import (
	"context"

	"safetrack.org/internal/auth"
)

// Predicate is a composable authorization rule evaluated after the caller's
// role has been resolved. Returning an error aborts the operation; guard
// errors (e.g. not-found raised while loading the target) pass through.
type Predicate[Req any] func(ctx context.Context, c Caller, req Req) (bool, error)

// Authenticated allows any verified caller. Authentication itself is enforced
// by Run before predicates ever execute.
func Authenticated[Req any]() Predicate[Req] {
	return func(context.Context, Caller, Req) (bool, error) {
		return true, nil
	}
}

// RoleAtLeast grants callers whose resolved role sits at or above required.
func RoleAtLeast[Req any](required auth.Role) Predicate[Req] {
	return func(_ context.Context, c Caller, _ Req) (bool, error) {
		return c.Role.AtLeast(required), nil
	}
}

// Owner grants the caller when ownerOf resolves the target's owner to the
// caller's uid. ownerOf typically loads the target record.
func Owner[Req any](ownerOf func(ctx context.Context, req Req) (string, error)) Predicate[Req] {
	return func(ctx context.Context, c Caller, req Req) (bool, error) {
		owner, err := ownerOf(ctx, req)
		if err != nil {
			return false, err
		}
		return owner != "" && owner == c.UID, nil
	}
}

// Self grants the caller when the request targets their own record.
func Self[Req any](targetOf func(req Req) string) Predicate[Req] {
	return func(_ context.Context, c Caller, req Req) (bool, error) {
		target := targetOf(req)
		return target != "" && target == c.UID, nil
	}
}

// AnyOf grants when at least one predicate grants. Errors short-circuit.
func AnyOf[Req any](preds ...Predicate[Req]) Predicate[Req] {
	return func(ctx context.Context, c Caller, req Req) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx, c, req)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// AllOf grants only when every predicate grants.
func AllOf[Req any](preds ...Predicate[Req]) Predicate[Req] {
	return func(ctx context.Context, c Caller, req Req) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx, c, req)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}
