package auth

import "strings"

// Role is one of the five privilege tiers. The hierarchy is a strict total
// order used only for >= comparisons; roles never compose capabilities.
type Role string

const (
	RoleUser       Role = "user"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// FallbackRole is the effective role when a caller has no user record or the
// stored role fails to parse. Unknown callers always land on the lowest tier.
const FallbackRole = RoleUser

// roleRanks pins the hierarchy: super_admin > admin > manager > supervisor > user.
var roleRanks = map[Role]int{
	RoleUser:       1,
	RoleSupervisor: 2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// Roles lists every valid role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleUser, RoleSupervisor, RoleManager, RoleAdmin, RoleSuperAdmin}
}

// ParseRole normalizes a raw role string. Unknown values report ok=false.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// Rank returns the integer position of the role in the hierarchy.
// Unknown roles rank 0, below every valid tier.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether the role is one of the five tiers.
func (r Role) Valid() bool {
	return roleRanks[r] != 0
}

// AtLeast reports whether r sits at or above required in the hierarchy.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank() && required.Valid()
}
