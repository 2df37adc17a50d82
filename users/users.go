package users

// RoleType represents a user role within the restaurant platform
type RoleType string

const (
	// RoleOwner owns one or more restaurants and switches between them explicitly
	RoleOwner RoleType = "owner"
	// RoleManager manages a single restaurant and is bound to it
	RoleManager RoleType = "manager"
	// RoleStaff is a regular member of a single restaurant's staff
	RoleStaff RoleType = "staff"
)

// User is the authenticated operator profile returned by the backend.
// TenantID is authoritative for manager and staff roles. For owners it is
// empty; owners carry a tenant list instead and scope requests by selection.
type User struct {
	ID       string   `json:"id,omitempty"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"fullName,omitempty"`
	Role     RoleType `json:"role,omitempty"`
	TenantID string   `json:"tenantId,omitempty"`
}

// IsOwner reports whether the user selects tenant scope rather than being bound to it.
func (u *User) IsOwner() bool {
	return u != nil && u.Role == RoleOwner
}
