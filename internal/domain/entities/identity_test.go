package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Roles(t *testing.T) {
	tests := []struct {
		role     Role
		admin    bool
		provider bool
	}{
		{RoleSuperAdmin, true, false},
		{RoleAdmin, true, false},
		{RoleProvider, false, true},
		{RoleRequester, false, false},
		{Role("GUEST"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			id := Identity{ID: "u-1", Role: tt.role}
			assert.Equal(t, tt.admin, id.IsAdmin())
			assert.Equal(t, tt.provider, id.HasRole(RoleProvider))
			assert.Equal(t, tt.admin || tt.provider, id.HasRole(RoleAdmin, RoleSuperAdmin, RoleProvider))
		})
	}
	assert.False(t, Identity{Role: RoleAdmin}.HasRole())
}
