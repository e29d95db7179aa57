package board

// Role is an actor's effective standing in a project. Owner is not stored in
// the roster; it is resolved from Project.OwnerID and outranks every row.
type Role string

// Roles in ascending order of capability.
const (
	RoleNone   Role = "none"
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// roleRank is the fixed total order. Comparing ranks instead of raw strings
// keeps an unknown role at the bottom rather than silently granting access.
var roleRank = map[Role]int{
	RoleNone:   0,
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether r is one of the assignable roster roles.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleMember, RoleAdmin:
		return true
	}
	return false
}

// AtLeast reports whether r satisfies the required minimum role.
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// ResolveRole computes the effective role of an actor for a project given the
// actor's roster row, if any. Owner wins regardless of roster contents.
func ResolveRole(actorID string, project *Project, membership *ProjectMember) Role {
	if project == nil {
		return RoleNone
	}
	if project.OwnerID == actorID {
		return RoleOwner
	}
	if membership == nil {
		return RoleNone
	}
	if _, ok := roleRank[membership.Role]; !ok {
		return RoleNone
	}
	return membership.Role
}
