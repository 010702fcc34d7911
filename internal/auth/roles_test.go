package auth

import "testing"

func TestRoleHierarchyMatrix(t *testing.T) {
	order := []Role{RoleUser, RoleSupervisor, RoleManager, RoleAdmin, RoleSuperAdmin}
	for i, caller := range order {
		for j, required := range order {
			want := i >= j
			if got := caller.AtLeast(required); got != want {
				t.Fatalf("%s.AtLeast(%s) = %v, want %v", caller, required, got, want)
			}
		}
	}
}

func TestSuperAdminSatisfiesEverything(t *testing.T) {
	for _, required := range Roles() {
		if !RoleSuperAdmin.AtLeast(required) {
			t.Fatalf("super_admin should satisfy %s", required)
		}
	}
}

func TestUserSatisfiesOnlyUser(t *testing.T) {
	if !RoleUser.AtLeast(RoleUser) {
		t.Fatal("user should satisfy user")
	}
	for _, required := range []Role{RoleSupervisor, RoleManager, RoleAdmin, RoleSuperAdmin} {
		if RoleUser.AtLeast(required) {
			t.Fatalf("user should not satisfy %s", required)
		}
	}
}

func TestAtLeastRejectsUnknownRequirement(t *testing.T) {
	if RoleSuperAdmin.AtLeast(Role("owner")) {
		t.Fatal("unknown required role must never be satisfied")
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("  Admin ")
	if !ok || role != RoleAdmin {
		t.Fatalf("ParseRole normalization failed: %q %v", role, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatal("ParseRole accepted a role outside the enumeration")
	}
	if _, ok := ParseRole(""); ok {
		t.Fatal("ParseRole accepted empty input")
	}
}
