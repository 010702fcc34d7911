package auth

import (
	"context"
	"errors"
	"testing"
)

type stubRoleSource struct {
	roles map[string]Role
	err   error
}

func (s *stubRoleSource) RoleOf(_ context.Context, uid string) (Role, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	role, ok := s.roles[uid]
	return role, ok, nil
}

func TestResolverMissingRecordFallsBackToLowestPrivilege(t *testing.T) {
	r, err := NewResolver(&stubRoleSource{roles: map[string]Role{}})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	role, err := r.Resolve(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if role != FallbackRole {
		t.Fatalf("expected fallback role %s, got %s", FallbackRole, role)
	}
}

func TestResolverRereadsStoredRole(t *testing.T) {
	src := &stubRoleSource{roles: map[string]Role{"u1": RoleSupervisor}}
	r, _ := NewResolver(src)

	ok, err := r.Allow(context.Background(), "u1", RoleSupervisor)
	if err != nil || !ok {
		t.Fatalf("expected supervisor to satisfy supervisor: ok=%v err=%v", ok, err)
	}

	// Role changes between calls must take effect immediately.
	src.roles["u1"] = RoleUser
	ok, err = r.Allow(context.Background(), "u1", RoleSupervisor)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("demoted caller should no longer satisfy supervisor")
	}
}

func TestResolverInvalidStoredRoleFallsBack(t *testing.T) {
	src := &stubRoleSource{roles: map[string]Role{"u1": Role("root")}}
	r, _ := NewResolver(src)
	role, err := r.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if role != FallbackRole {
		t.Fatalf("expected fallback for out-of-enum role, got %s", role)
	}
}

func TestResolverPropagatesStoreError(t *testing.T) {
	src := &stubRoleSource{err: errors.New("store down")}
	r, _ := NewResolver(src)
	if _, err := r.Resolve(context.Background(), "u1"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
