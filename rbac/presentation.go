package rbac

// Route that unknown roles land on after sign in.
const DefaultDashboardRoute = "/dashboard"

var dashboardRoutes = map[Role]string{
	RoleUser:             DefaultDashboardRoute,
	RoleSubAdmin:         "/sub-admin",
	RoleRegionalAdmin:    "/regional-admin",
	RoleAdmin:            "/admin",
	RoleMaintenanceAdmin: "/maintenance",
	RoleSuperAdmin:       "/super-admin",
}

var displayNames = map[Role]string{
	RoleUser:             "User",
	RoleSubAdmin:         "Sub Admin",
	RoleRegionalAdmin:    "Regional Admin",
	RoleAdmin:            "Admin",
	RoleMaintenanceAdmin: "Maintenance Admin",
	RoleSuperAdmin:       "Super Admin",
}

var colors = map[Role]string{
	RoleUser:             "gray",
	RoleSubAdmin:         "blue",
	RoleRegionalAdmin:    "green",
	RoleAdmin:            "purple",
	RoleMaintenanceAdmin: "orange",
	RoleSuperAdmin:       "red",
}

// DashboardRoute returns where a role lands after sign in.
func DashboardRoute(r Role) string {
	if route, ok := dashboardRoutes[r]; ok {
		return route
	}
	return DefaultDashboardRoute
}

// DisplayName returns the badge label for a role.
func DisplayName(r Role) string {
	if name, ok := displayNames[r]; ok {
		return name
	}
	return displayNames[RoleUser]
}

// Color returns the badge color for a role.
func Color(r Role) string {
	if c, ok := colors[r]; ok {
		return c
	}
	return colors[RoleUser]
}
