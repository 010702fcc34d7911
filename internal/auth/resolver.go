package auth

import (
	"context"
	"errors"
	"strings"
)

// RoleSource exposes the stored role of a user record. The account store
// satisfies this; tests substitute fakes.
type RoleSource interface {
	// RoleOf returns the current role for uid. found=false means no record
	// exists for that identity.
	RoleOf(ctx context.Context, uid string) (Role, bool, error)
}

// Resolver decides whether a caller satisfies a required role. It re-reads
// the record store on every call so role changes take effect immediately;
// no caching, no side effects.
type Resolver struct {
	src RoleSource
}

// NewResolver builds a resolver over the given record source.
func NewResolver(src RoleSource) (*Resolver, error) {
	if src == nil {
		return nil, errors.New("auth: role source is required")
	}
	return &Resolver{src: src}, nil
}

// Resolve returns the caller's effective role. A missing record resolves to
// FallbackRole; a stored role outside the enumeration is treated the same way.
func (r *Resolver) Resolve(ctx context.Context, uid string) (Role, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return FallbackRole, nil
	}
	role, found, err := r.src.RoleOf(ctx, uid)
	if err != nil {
		return "", err
	}
	if !found || !role.Valid() {
		return FallbackRole, nil
	}
	return role, nil
}

// Allow reports whether the caller's current role is at or above required.
func (r *Resolver) Allow(ctx context.Context, uid string, required Role) (bool, error) {
	role, err := r.Resolve(ctx, uid)
	if err != nil {
		return false, err
	}
	return role.AtLeast(required), nil
}
