package auth

import "slices"

// Role is an authorisation tier.
type Role string

const (
	// RoleViewer may read sensors and status.
	RoleViewer Role = "viewer"

	// RoleAdmin may also call the discovery services and read the audit trail.
	RoleAdmin Role = "admin"

	// RoleOwner has every permission.
	RoleOwner Role = "owner"
)

// Permission is a named capability.
type Permission string

const (
	PermSensorRead  Permission = "sensor:read"
	PermServiceCall Permission = "service:call"
	PermAuditRead   Permission = "audit:read"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer: {PermSensorRead},
	RoleAdmin:  {PermSensorRead, PermServiceCall, PermAuditRead},
	RoleOwner:  {PermSensorRead, PermServiceCall, PermAuditRead},
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the role's permissions, or nil for
// an unknown role.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
