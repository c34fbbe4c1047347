package rbac

// The permission matrix. Never mutated after package initialization.
//
// RoleSuperAdmin has an entry so that listings and exports are complete, but
// the resolver does not consult it.
var matrix = map[Role]RolePermissions{
	RoleUser: {
		Applications: ApplicationPermissions{View: ViewAssigned, Create: true, Edit: true},
		Users:        UserPermissions{View: ViewBasic},
		Payments:     PaymentPermissions{View: ViewAssigned},
		Documents:    DocumentPermissions{View: ViewAssigned},
		System:       SystemPermissions{},
		Analytics:    AnalyticsPermissions{View: ViewNone},
		Content:      ContentPermissions{View: ViewNone},
	},
	RoleSubAdmin: {
		Applications: ApplicationPermissions{View: ViewAssigned, Edit: true, Approve: true, Reject: true},
		Users:        UserPermissions{View: ViewBasic},
		Payments:     PaymentPermissions{View: ViewAssigned},
		Documents:    DocumentPermissions{View: ViewAssigned, Verify: true, Reject: true},
		System:       SystemPermissions{},
		Analytics:    AnalyticsPermissions{View: ViewNone},
		Content:      ContentPermissions{View: ViewAll, Create: true, Edit: true},
	},
	RoleRegionalAdmin: {
		Applications: ApplicationPermissions{View: ViewRegion, Edit: true, Approve: true, Reject: true, Export: true},
		Users:        UserPermissions{View: ViewRegion, Edit: true, Suspend: true},
		Payments:     PaymentPermissions{View: ViewRegion, Export: true},
		Documents:    DocumentPermissions{View: ViewRegion, Verify: true, Reject: true},
		System:       SystemPermissions{},
		Analytics:    AnalyticsPermissions{View: ViewRegion, Export: true},
		Content:      ContentPermissions{View: ViewAll, Create: true, Edit: true},
	},
	RoleAdmin: {
		Applications: ApplicationPermissions{View: ViewAll, Create: true, Edit: true, Delete: true, Approve: true, Reject: true, Export: true},
		Users:        UserPermissions{View: ViewAll, Create: true, Edit: true, Delete: true, Suspend: true},
		Payments:     PaymentPermissions{View: ViewAll, Refund: true, Export: true},
		Documents:    DocumentPermissions{View: ViewAll, Verify: true, Reject: true, Delete: true},
		System:       SystemPermissions{Logs: true},
		Analytics:    AnalyticsPermissions{View: ViewAll, Export: true},
		Content:      ContentPermissions{View: ViewAll, Create: true, Edit: true, Delete: true, Approve: true},
	},
	RoleMaintenanceAdmin: {
		Applications: ApplicationPermissions{View: ViewNone},
		Users:        UserPermissions{View: ViewBasic},
		Payments:     PaymentPermissions{View: ViewNone},
		Documents:    DocumentPermissions{View: ViewNone},
		System:       SystemPermissions{Configuration: true, Maintenance: true, Backups: true, Logs: true},
		Analytics:    AnalyticsPermissions{View: ViewSystem},
		Content:      ContentPermissions{View: ViewNone},
	},
	RoleSuperAdmin: {
		Applications: ApplicationPermissions{View: ViewAll, Create: true, Edit: true, Delete: true, Approve: true, Reject: true, Export: true},
		Users:        UserPermissions{View: ViewAll, Create: true, Edit: true, Delete: true, Suspend: true, AssignRoles: true},
		Payments:     PaymentPermissions{View: ViewAll, Refund: true, Export: true},
		Documents:    DocumentPermissions{View: ViewAll, Verify: true, Reject: true, Delete: true},
		System:       SystemPermissions{Configuration: true, Maintenance: true, Backups: true, Logs: true},
		Analytics:    AnalyticsPermissions{View: ViewAll, Export: true},
		Content:      ContentPermissions{View: ViewAll, Create: true, Edit: true, Delete: true, Approve: true},
	},
}

// Permissions returns a copy of the matrix entry for a role.
func Permissions(r Role) (RolePermissions, bool) {
	rp, ok := matrix[r]
	return rp, ok
}
