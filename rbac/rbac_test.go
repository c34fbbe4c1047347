package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, ok := ParseRole(string(r))
		assert.True(t, ok)
		assert.Equal(t, r, got)
	}

	for _, s := range []string{"", "Admin", "SUPER_ADMIN", " admin", "superadmin"} {
		_, ok := ParseRole(s)
		assert.False(t, ok, "%q should not parse", s)
	}
}

func TestRolesOrderedByRank(t *testing.T) {
	prev := -1
	for _, r := range Roles() {
		rank, ok := Rank(r)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, rank, prev)
		prev = rank
	}
}

func TestRolesReturnsCopy(t *testing.T) {
	rs := Roles()
	rs[0] = "hacked"
	assert.Equal(t, RoleUser, Roles()[0])
}

func TestMatrixIsTotal(t *testing.T) {
	assert.Len(t, matrix, len(roles))
	for _, r := range roles {
		rp, ok := matrix[r]
		assert.True(t, ok, "missing role %s", r)
		for _, res := range resources {
			_, ok := rp.entry(res)
			assert.True(t, ok, "missing %s for %s", res, r)
		}
	}
}

func TestMatrixUsesKnownScopes(t *testing.T) {
	known := map[ViewScope]bool{}
	for _, v := range ViewScopes() {
		known[v] = true
	}
	for r, rp := range matrix {
		for _, res := range resources {
			e, _ := rp.entry(res)
			if v, ok := e.view(); ok {
				assert.True(t, known[v], "%s has unknown scope %q on %s", r, v, res)
			}
		}
	}
}

func TestSuperAdminEntryGrantsEverything(t *testing.T) {
	rp := matrix[RoleSuperAdmin]
	for _, res := range resources {
		e, _ := rp.entry(res)
		for _, a := range Flags(res) {
			assert.True(t, e.allows(a), "%s.%s", res, a)
		}
		if v, ok := e.view(); ok {
			assert.Equal(t, ViewAll, v, res)
		}
	}
}

func TestOnlySuperAdminAssignsRoles(t *testing.T) {
	for r, rp := range matrix {
		assert.Equal(t, r == RoleSuperAdmin, rp.Users.AssignRoles, r)
	}
}

func TestHasView(t *testing.T) {
	for _, res := range resources {
		assert.Equal(t, res != ResourceSystem, HasView(res), res)
	}
	assert.False(t, HasView("invoices"))
}

func TestFlags(t *testing.T) {
	assert.Equal(t, []Action{ActionRefund, ActionExport}, Flags(ResourcePayments))
	assert.Empty(t, Flags("invoices"))

	// Every listed flag must be readable from its entry.
	rp := matrix[RoleSuperAdmin]
	for _, res := range resources {
		e, _ := rp.entry(res)
		for _, a := range Flags(res) {
			assert.True(t, e.allows(a), "%s does not read %s", res, a)
		}
	}
}

func TestUnsetViewIsNone(t *testing.T) {
	v, ok := ApplicationPermissions{}.view()
	assert.True(t, ok)
	assert.Equal(t, ViewNone, v)
}

func TestPresentation(t *testing.T) {
	tests := []struct {
		role  Role
		route string
		name  string
		color string
	}{
		{RoleUser, "/dashboard", "User", "gray"},
		{RoleSubAdmin, "/sub-admin", "Sub Admin", "blue"},
		{RoleRegionalAdmin, "/regional-admin", "Regional Admin", "green"},
		{RoleAdmin, "/admin", "Admin", "purple"},
		{RoleMaintenanceAdmin, "/maintenance", "Maintenance Admin", "orange"},
		{RoleSuperAdmin, "/super-admin", "Super Admin", "red"},
		{"travel_agent", "/dashboard", "User", "gray"},
		{"", "/dashboard", "User", "gray"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				assert.Equal(t, tt.route, DashboardRoute(tt.role))
			}
			assert.Equal(t, tt.name, DisplayName(tt.role))
			assert.Equal(t, tt.color, Color(tt.role))
		})
	}
}
