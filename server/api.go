package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/guard"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/rbac"
	"github.com/tripdesk/permit/rbac/casbinexport"
	"github.com/tripdesk/permit/serverutil"

	"google.golang.org/grpc/codes"
)

const maxBodyBytes = 1 << 20

// RoleInfo describes a role for clients rendering badges and menus.
type RoleInfo struct {
	Role        rbac.Role            `json:"role"`
	Rank        int                  `json:"rank"`
	DisplayName string               `json:"displayName"`
	Color       string               `json:"color"`
	Dashboard   string               `json:"dashboard"`
	Permissions rbac.RolePermissions `json:"permissions"`
}

// CheckResponse is returned by GET /v1/check. A denial is a successful
// response with allowed set to false.
type CheckResponse struct {
	Allowed  bool           `json:"allowed"`
	Decision guard.Decision `json:"decision"`
}

// MeResponse is returned by GET /v1/me.
type MeResponse struct {
	Principal guard.Principal `json:"principal"`
	Role      RoleInfo        `json:"role"`
}

// API serves the permit JSON endpoints.
type API struct {
	guard    *guard.Guard
	profiles *profiles.Service
}

// NewAPI returns an API that identifies callers with g and manages profiles
// through svc.
func NewAPI(g *guard.Guard, svc *profiles.Service) *API {
	return &API{guard: g, profiles: svc}
}

// Routes returns the API handlers keyed by ServeMux pattern.
func (a *API) Routes() map[string]http.Handler {
	authenticated := a.guard.Authenticated()
	canSuspend := a.guard.Middleware(guard.Permission(rbac.ResourceUsers, rbac.ActionSuspend))
	canConfigure := a.guard.Middleware(guard.Permission(rbac.ResourceSystem, rbac.ActionConfiguration))

	return map[string]http.Handler{
		"GET /v1/roles":               serverutil.JSONHandler(a.roles),
		"GET /v1/me":                  authenticated(serverutil.JSONHandler(a.me)),
		"GET /v1/check":               authenticated(serverutil.JSONHandler(a.check)),
		"GET /v1/dashboard":           authenticated(http.HandlerFunc(a.dashboard)),
		"GET /v1/users":               authenticated(serverutil.JSONHandler(a.listUsers)),
		"POST /v1/users/{id}/role":    authenticated(serverutil.JSONHandler(a.assignRole)),
		"POST /v1/users/{id}/suspend": canSuspend(serverutil.JSONHandler(a.suspend)),
		"GET /v1/policy.csv":          canConfigure(http.HandlerFunc(a.policy)),
	}
}

func (a *API) roles(r *http.Request) (any, error) {
	out := []RoleInfo{}
	for _, role := range rbac.Roles() {
		out = append(out, roleInfo(role))
	}
	return out, nil
}

func roleInfo(role rbac.Role) RoleInfo {
	rank, _ := rbac.Rank(role)
	perms, _ := rbac.Permissions(role)
	return RoleInfo{
		Role:        role,
		Rank:        rank,
		DisplayName: rbac.DisplayName(role),
		Color:       rbac.Color(role),
		Dashboard:   rbac.DashboardRoute(role),
		Permissions: perms,
	}
}

func (a *API) me(r *http.Request) (any, error) {
	p := principal(r)
	return MeResponse{Principal: p, Role: roleInfo(p.Role)}, nil
}

func (a *API) check(r *http.Request) (any, error) {
	q := r.URL.Query()
	res := rbac.Resource(q.Get("resource"))
	action := rbac.Action(q.Get("action"))
	view := rbac.ViewScope(q.Get("view"))

	if res == "" {
		return nil, errors.Codef(codes.InvalidArgument, "resource is required")
	}
	if (action == "") == (view == "") {
		return nil, errors.Codef(codes.InvalidArgument, "exactly one of action or view is required")
	}

	rule := guard.Permission(res, action)
	if view != "" {
		rule = guard.View(res, view)
	}

	d, err := a.guard.Check(r.Context(), rule)
	if err != nil && errors.Code(err) != codes.PermissionDenied {
		return nil, err
	}
	return CheckResponse{Allowed: d.Allowed(), Decision: d}, nil
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, rbac.DashboardRoute(principal(r).Role), http.StatusFound)
}

func (a *API) listUsers(r *http.Request) (any, error) {
	list, err := a.profiles.Visible(r.Context(), principal(r).Actor())
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []profiles.Profile{}
	}
	return list, nil
}

type assignRoleRequest struct {
	Role rbac.Role `json:"role"`
}

func (a *API) assignRole(r *http.Request) (any, error) {
	var req assignRoleRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return a.profiles.AssignRole(r.Context(), principal(r).Actor(), r.PathValue("id"), req.Role)
}

type suspendRequest struct {
	Suspended *bool `json:"suspended"`
}

func (a *API) suspend(r *http.Request) (any, error) {
	var req suspendRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.Suspended == nil {
		return nil, errors.Codef(codes.InvalidArgument, "suspended is required")
	}
	return a.profiles.Suspend(r.Context(), principal(r).Actor(), r.PathValue("id"), *req.Suspended)
}

func (a *API) policy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, casbinexport.CSV())
}

func principal(r *http.Request) guard.Principal {
	p, _ := guard.PrincipalFromContext(r.Context())
	return p
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Codef(codes.InvalidArgument, "invalid request body: %v", err)
	}
	return nil
}
