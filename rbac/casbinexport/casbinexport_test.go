package casbinexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tripdesk/permit/rbac"

	"github.com/casbin/casbin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nonsense = []rbac.Action{
	"", "nonexistent_action", "*", "VIEW", "assignroles",
	"view:edit", "view:all", "view:", "all", "region",
}

func TestEnforcerMatchesResolver(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	roles := append(rbac.Roles(), "owner", "")
	resources := append(rbac.Resources(), "invoices", "*")
	for _, role := range roles {
		for _, res := range resources {
			for _, a := range append(rbac.Flags(res), nonsense...) {
				got, err := e.Enforce(string(role), string(res), string(a))
				require.NoError(t, err)
				assert.Equal(t, rbac.HasPermission(role, res, a), got, "%s %s %q", role, res, a)
			}
			for _, v := range append(rbac.ViewScopes(), "galaxy", "", "*", "edit") {
				got, err := EnforceView(e, role, res, v)
				require.NoError(t, err)
				assert.Equal(t, rbac.CanAccessView(role, res, v), got, "%s %s view %q", role, res, v)
			}
		}
	}
}

func TestViewScopesAreNotActions(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	for _, a := range []string{"view:edit", "view:all", "view:", "all"} {
		ok, err := e.Enforce("admin", "applications", a)
		require.NoError(t, err)
		assert.False(t, ok, a)
	}

	ok, err := EnforceView(e, rbac.RoleAdmin, rbac.ResourceApplications, rbac.ViewRegion)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicies(t *testing.T) {
	rows := Policies()
	assert.Contains(t, rows, []string{"super_admin", "*", "*"})
	assert.Contains(t, rows, []string{"admin", "payments", "refund"})
	assert.NotContains(t, rows, []string{"admin", "users", "assignRoles"})
	for _, row := range rows {
		assert.Len(t, row, 3)
	}

	views := ViewPolicies()
	assert.Contains(t, views, []string{"super_admin", "*", "*"})
	assert.Contains(t, views, []string{"regional_admin", "users", "region"})
	assert.Contains(t, views, []string{"user", "analytics", "none"})
	for _, row := range views {
		assert.NotEqual(t, "system", row[1], "system has no view rows")
	}
}

func TestCSVLoadsWithFileAdapter(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(modelPath, []byte(Model), 0o600))
	require.NoError(t, os.WriteFile(policyPath, []byte(CSV()), 0o600))

	e, err := casbin.NewEnforcer(modelPath, policyPath)
	require.NoError(t, err)

	ok, err := e.Enforce("maintenance_admin", "system", "backups")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("admin", "system", "backups")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EnforceView(e, rbac.RoleUser, rbac.ResourceApplications, rbac.ViewAssigned)
	require.NoError(t, err)
	assert.True(t, ok)

	csv := CSV()
	assert.True(t, strings.HasPrefix(csv, "p, user, applications, create\n"))
	assert.Contains(t, csv, "p2, user, applications, assigned\n")
}
