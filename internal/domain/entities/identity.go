package entities

// Role is the caller role supplied by the identity collaborator
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleProvider   Role = "PROVIDER"
	RoleRequester  Role = "REQUESTER"
)

// Identity is an already verified caller. ID is the provider or requester id for
// those roles.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the caller holds an administrative role
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin, RoleSuperAdmin)
}

// HasRole reports whether the caller holds any of roles
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
