// Package rbac holds the role model for the travel-services platform: the
// closed set of roles, the static permission matrix, and the functions that
// resolve authorization questions against it.
//
// The matrix is compiled in. Changing what a role may do is a code change,
// reviewed like any other, not a data migration.
//
// # Resolving permissions
//
// Three kinds of question are answered:
//
//	rbac.HasPermission(rbac.RoleAdmin, rbac.ResourcePayments, rbac.ActionRefund)    // capability flag
//	rbac.CanAccessView(rbac.RoleRegionalAdmin, rbac.ResourceUsers, rbac.ViewRegion) // view scope
//	rbac.HasHigherOrEqualRole(rbac.RoleAdmin, rbac.RoleSubAdmin)                    // hierarchy
//
// Every function is pure and safe for concurrent use. None of them return
// errors: an unknown role, resource, action or view scope resolves to false.
//
// RoleSuperAdmin is granted every capability and every view on every resource
// without consulting the matrix. It is the only universal grant; all other
// roles need an explicit entry.
//
// # View scopes
//
// CanAccessView compares scopes by equality, with ViewAll satisfying any
// request. Scopes are labels, not a containment lattice: a role that sees
// ViewRegion does not thereby see ViewAssigned.
package rbac

// Role identifies a principal's authorization level.
type Role string

const (
	RoleUser             = Role("user")
	RoleSubAdmin         = Role("sub_admin")
	RoleRegionalAdmin    = Role("regional_admin")
	RoleAdmin            = Role("admin")
	RoleMaintenanceAdmin = Role("maintenance_admin")
	RoleSuperAdmin       = Role("super_admin")
)

// Hierarchy ranks. Used for relative-privilege comparisons only, never to
// derive permissions.
var ranks = map[Role]int{
	RoleUser:             0,
	RoleSubAdmin:         1,
	RoleRegionalAdmin:    2,
	RoleAdmin:            3,
	RoleMaintenanceAdmin: 3,
	RoleSuperAdmin:       4,
}

var roles = []Role{
	RoleUser,
	RoleSubAdmin,
	RoleRegionalAdmin,
	RoleAdmin,
	RoleMaintenanceAdmin,
	RoleSuperAdmin,
}

// Roles returns every role, lowest rank first.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole returns the role named by s. Only the exact role identifiers are
// accepted.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if _, ok := ranks[r]; !ok {
		return "", false
	}
	return r, true
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := ranks[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// Rank returns the hierarchy rank of a role.
func Rank(r Role) (int, bool) {
	rank, ok := ranks[r]
	return rank, ok
}
