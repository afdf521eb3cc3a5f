// Package identity contains the domain types for the console's authenticated user.
package identity

// Role represents a backend user role for authorization purposes.
type Role string

const (
	// RoleUser is the default role for accounts with no elevated access.
	RoleUser Role = "user"
	// RoleCashier can operate the booking desk screens.
	RoleCashier Role = "cashier"
	// RoleAdmin manages the cinema catalog and bookings.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin bypasses every permission check.
	RoleSuperAdmin Role = "superadmin"
)

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleCashier, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// AdminTier reports whether the role may enter the admin console at all.
// Cashiers count: they share the console shell for the booking desk.
func (r Role) AdminTier() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleCashier:
		return true
	default:
		return false
	}
}

// User is the backend user record as returned by the auth endpoints.
type User struct {
	// ID is the backend identifier for the account.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name,omitempty"`
	// Phone is the login identifier for console accounts.
	Phone string `json:"phone,omitempty"`
	// Role is the raw role string from the backend.
	Role Role `json:"role"`
	// Permissions is an optional permission list embedded in the record.
	// The permission store is authoritative; this is informational only.
	Permissions []string `json:"permissions,omitempty"`
}

// EffectiveRole returns the user's role, defaulting unknown or empty
// values to RoleUser. A nil user is also RoleUser.
func (u *User) EffectiveRole() Role {
	if u == nil || !u.Role.IsValid() {
		return RoleUser
	}
	return u.Role
}
