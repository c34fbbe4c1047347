package rbac

// Resource names a protectable domain of the application.
type Resource string

const (
	ResourceApplications = Resource("applications")
	ResourceUsers        = Resource("users")
	ResourcePayments     = Resource("payments")
	ResourceDocuments    = Resource("documents")
	ResourceSystem       = Resource("system")
	ResourceAnalytics    = Resource("analytics")
	ResourceContent      = Resource("content")
)

var resources = []Resource{
	ResourceApplications,
	ResourceUsers,
	ResourcePayments,
	ResourceDocuments,
	ResourceSystem,
	ResourceAnalytics,
	ResourceContent,
}

// Resources returns every protectable resource.
func Resources() []Resource {
	out := make([]Resource, len(resources))
	copy(out, resources)
	return out
}

// Action names a boolean capability flag on a resource.
type Action string

const (
	ActionCreate        = Action("create")
	ActionEdit          = Action("edit")
	ActionDelete        = Action("delete")
	ActionApprove       = Action("approve")
	ActionReject        = Action("reject")
	ActionExport        = Action("export")
	ActionVerify        = Action("verify")
	ActionRefund        = Action("refund")
	ActionSuspend       = Action("suspend")
	ActionAssignRoles   = Action("assignRoles")
	ActionConfiguration = Action("configuration")
	ActionMaintenance   = Action("maintenance")
	ActionBackups       = Action("backups")
	ActionLogs          = Action("logs")
)

// ViewScope is the breadth of visibility a role has on a resource.
type ViewScope string

const (
	ViewNone     = ViewScope("none")
	ViewAssigned = ViewScope("assigned")
	ViewRegion   = ViewScope("region")
	ViewAll      = ViewScope("all")
	ViewBasic    = ViewScope("basic")
	ViewSystem   = ViewScope("system")
)

// ViewScopes returns every defined view scope.
func ViewScopes() []ViewScope {
	return []ViewScope{ViewNone, ViewAssigned, ViewRegion, ViewAll, ViewBasic, ViewSystem}
}

// entry is the shape shared by the per-resource permission records.
type entry interface {
	// view returns the view scope, and false for shapes that have no view.
	view() (ViewScope, bool)

	// allows returns the named flag. Flags absent from the shape are false.
	allows(a Action) bool
}

// ApplicationPermissions covers visa and tour applications.
type ApplicationPermissions struct {
	View    ViewScope `json:"view"`
	Create  bool      `json:"create"`
	Edit    bool      `json:"edit"`
	Delete  bool      `json:"delete"`
	Approve bool      `json:"approve"`
	Reject  bool      `json:"reject"`
	Export  bool      `json:"export"`
}

func (p ApplicationPermissions) view() (ViewScope, bool) { return scopeOrNone(p.View), true }

func (p ApplicationPermissions) allows(a Action) bool {
	switch a {
	case ActionCreate:
		return p.Create
	case ActionEdit:
		return p.Edit
	case ActionDelete:
		return p.Delete
	case ActionApprove:
		return p.Approve
	case ActionReject:
		return p.Reject
	case ActionExport:
		return p.Export
	}
	return false
}

// UserPermissions covers user accounts.
type UserPermissions struct {
	View        ViewScope `json:"view"`
	Create      bool      `json:"create"`
	Edit        bool      `json:"edit"`
	Delete      bool      `json:"delete"`
	Suspend     bool      `json:"suspend"`
	AssignRoles bool      `json:"assignRoles"`
}

func (p UserPermissions) view() (ViewScope, bool) { return scopeOrNone(p.View), true }

func (p UserPermissions) allows(a Action) bool {
	switch a {
	case ActionCreate:
		return p.Create
	case ActionEdit:
		return p.Edit
	case ActionDelete:
		return p.Delete
	case ActionSuspend:
		return p.Suspend
	case ActionAssignRoles:
		return p.AssignRoles
	}
	return false
}

// PaymentPermissions covers payment records.
type PaymentPermissions struct {
	View   ViewScope `json:"view"`
	Refund bool      `json:"refund"`
	Export bool      `json:"export"`
}

func (p PaymentPermissions) view() (ViewScope, bool) { return scopeOrNone(p.View), true }

func (p PaymentPermissions) allows(a Action) bool {
	switch a {
	case ActionRefund:
		return p.Refund
	case ActionExport:
		return p.Export
	}
	return false
}

// DocumentPermissions covers uploaded supporting documents.
type DocumentPermissions struct {
	View   ViewScope `json:"view"`
	Verify bool      `json:"verify"`
	Reject bool      `json:"reject"`
	Delete bool      `json:"delete"`
}

func (p DocumentPermissions) view() (ViewScope, bool) { return scopeOrNone(p.View), true }

func (p DocumentPermissions) allows(a Action) bool {
	switch a {
	case ActionVerify:
		return p.Verify
	case ActionReject:
		return p.Reject
	case ActionDelete:
		return p.Delete
	}
	return false
}

// SystemPermissions covers platform operations. System has no view scope.
type SystemPermissions struct {
	Configuration bool `json:"configuration"`
	Maintenance   bool `json:"maintenance"`
	Backups       bool `json:"backups"`
	Logs          bool `json:"logs"`
}

func (p SystemPermissions) view() (ViewScope, bool) { return "", false }

func (p SystemPermissions) allows(a Action) bool {
	switch a {
	case ActionConfiguration:
		return p.Configuration
	case ActionMaintenance:
		return p.Maintenance
	case ActionBackups:
		return p.Backups
	case ActionLogs:
		return p.Logs
	}
	return false
}

// AnalyticsPermissions covers reporting dashboards.
type AnalyticsPermissions struct {
	View   ViewScope `json:"view"`
	Export bool      `json:"export"`
}

func (p AnalyticsPermissions) view() (ViewScope, bool) { return scopeOrNone(p.View), true }

func (p AnalyticsPermissions) allows(a Action) bool {
	return a == ActionExport && p.Export
}

// ContentPermissions covers blog and CMS content.
type ContentPermissions struct {
	View    ViewScope `json:"view"`
	Create  bool      `json:"create"`
	Edit    bool      `json:"edit"`
	Delete  bool      `json:"delete"`
	Approve bool      `json:"approve"`
}

func (p ContentPermissions) view() (ViewScope, bool) { return scopeOrNone(p.View), true }

func (p ContentPermissions) allows(a Action) bool {
	switch a {
	case ActionCreate:
		return p.Create
	case ActionEdit:
		return p.Edit
	case ActionDelete:
		return p.Delete
	case ActionApprove:
		return p.Approve
	}
	return false
}

// An unset scope in the matrix means no visibility.
func scopeOrNone(v ViewScope) ViewScope {
	if v == "" {
		return ViewNone
	}
	return v
}

// RolePermissions is a role's entry for every resource. Because each resource
// is a field, an entry can not omit a resource; unset fields deny.
type RolePermissions struct {
	Applications ApplicationPermissions `json:"applications"`
	Users        UserPermissions        `json:"users"`
	Payments     PaymentPermissions     `json:"payments"`
	Documents    DocumentPermissions    `json:"documents"`
	System       SystemPermissions      `json:"system"`
	Analytics    AnalyticsPermissions   `json:"analytics"`
	Content      ContentPermissions     `json:"content"`
}

func (rp RolePermissions) entry(res Resource) (entry, bool) {
	switch res {
	case ResourceApplications:
		return rp.Applications, true
	case ResourceUsers:
		return rp.Users, true
	case ResourcePayments:
		return rp.Payments, true
	case ResourceDocuments:
		return rp.Documents, true
	case ResourceSystem:
		return rp.System, true
	case ResourceAnalytics:
		return rp.Analytics, true
	case ResourceContent:
		return rp.Content, true
	}
	return nil, false
}

// Flags returns the capability flags defined for a resource, in declaration
// order. Unknown resources have none.
func Flags(res Resource) []Action {
	switch res {
	case ResourceApplications:
		return []Action{ActionCreate, ActionEdit, ActionDelete, ActionApprove, ActionReject, ActionExport}
	case ResourceUsers:
		return []Action{ActionCreate, ActionEdit, ActionDelete, ActionSuspend, ActionAssignRoles}
	case ResourcePayments:
		return []Action{ActionRefund, ActionExport}
	case ResourceDocuments:
		return []Action{ActionVerify, ActionReject, ActionDelete}
	case ResourceSystem:
		return []Action{ActionConfiguration, ActionMaintenance, ActionBackups, ActionLogs}
	case ResourceAnalytics:
		return []Action{ActionExport}
	case ResourceContent:
		return []Action{ActionCreate, ActionEdit, ActionDelete, ActionApprove}
	}
	return nil
}

// HasView reports whether a resource's shape carries a view scope.
func HasView(res Resource) bool {
	e, ok := RolePermissions{}.entry(res)
	if !ok {
		return false
	}
	_, ok = e.view()
	return ok
}
