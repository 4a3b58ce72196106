package enums

import "strings"

// UserRole is the role the TruckFlow API reports for a user.
type UserRole string

const (
	UserRoleSuperAdmin UserRole = "super_admin"
	UserRoleAdmin      UserRole = "admin"
	UserRoleDispatcher UserRole = "dispatcher"
	UserRoleDriver     UserRole = "driver"
)

// ParseUserRole normalizes the upstream role string. Unknown roles are kept as-is.
func ParseUserRole(value string) UserRole {
	return UserRole(strings.ToLower(strings.TrimSpace(value)))
}

// CanImpersonate reports whether the role may act for another organization.
func (r UserRole) CanImpersonate() bool {
	return r == UserRoleSuperAdmin
}
