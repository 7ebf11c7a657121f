package identity

// Role is the profile's marketplace role
type Role string

const (
	// RoleBuyer can browse and purchase; buyers are auto-approved.
	RoleBuyer Role = "buyer"
	// RoleSeller can manage listings once an administrator approves them.
	RoleSeller Role = "seller"
	// RoleAdmin moderates sellers. Never self-assignable; admins exist only
	// through seed data.
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}

// SelfAssignable reports whether a user may pick this role during onboarding.
func (r Role) SelfAssignable() bool {
	switch r {
	case RoleBuyer, RoleSeller:
		return true
	default:
		return false
	}
}

// AutoApproved reports whether profiles with this role skip the approval queue.
func (r Role) AutoApproved() bool {
	return r != RoleSeller
}

// CanModerate reports whether this role may drive the approval workflow.
func (r Role) CanModerate() bool {
	return r == RoleAdmin
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleBuyer,
		RoleSeller,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
