package rbac

// HasPermission reports whether role may perform action on res.
//
// RoleSuperAdmin is always allowed, including for actions no resource
// defines. For every other role the matrix is consulted and anything it does
// not grant is denied.
func HasPermission(role Role, res Resource, action Action) bool {
	if role == RoleSuperAdmin {
		return true
	}
	rp, ok := matrix[role]
	if !ok {
		return false
	}
	e, ok := rp.entry(res)
	if !ok {
		return false
	}
	return e.allows(action)
}

// CanAccessView reports whether role has the requested view scope on res.
//
// The role's scope must equal view exactly, or be ViewAll. Resources without
// a view field (ResourceSystem) never match. RoleSuperAdmin always matches.
func CanAccessView(role Role, res Resource, view ViewScope) bool {
	if role == RoleSuperAdmin {
		return true
	}
	rp, ok := matrix[role]
	if !ok {
		return false
	}
	e, ok := rp.entry(res)
	if !ok {
		return false
	}
	scope, ok := e.view()
	if !ok {
		return false
	}
	return scope == view || scope == ViewAll
}

// ViewOf returns the view scope role holds on res. The second value is false
// for unknown roles, unknown resources and resources without a view field.
// RoleSuperAdmin reports ViewAll.
func ViewOf(role Role, res Resource) (ViewScope, bool) {
	if role == RoleSuperAdmin && HasView(res) {
		return ViewAll, true
	}
	rp, ok := matrix[role]
	if !ok {
		return "", false
	}
	e, ok := rp.entry(res)
	if !ok {
		return "", false
	}
	return e.view()
}

// HasHigherOrEqualRole reports whether role ranks at or above target. Roles
// sharing a rank outrank each other. Unknown roles on either side compare
// false.
func HasHigherOrEqualRole(role, target Role) bool {
	a, ok := ranks[role]
	if !ok {
		return false
	}
	b, ok := ranks[target]
	if !ok {
		return false
	}
	return a >= b
}

// CanAssignRole reports whether acting may grant target to another user.
//
// Only RoleSuperAdmin assigns roles, and nobody can grant RoleSuperAdmin
// through this path.
func CanAssignRole(acting, target Role) bool {
	if acting != RoleSuperAdmin {
		return false
	}
	if target == RoleSuperAdmin {
		return false
	}
	return target.Valid()
}
