// Package casbinexport renders the rbac matrix as a casbin model and policy,
// for services that enforce access with casbin instead of linking package
// rbac.
//
// Permission flags become "p, <role>, <resource>, <action>" rows. View scopes
// live under their own policy type, "p2, <role>, <resource>, <scope>", so a
// scope can never be mistaken for an action. The super admin gets a wildcard
// row of each type. An enforcer built from the export agrees with
// rbac.HasPermission (through Enforce) and rbac.CanAccessView (through
// EnforceView).
package casbinexport

import (
	"strings"

	"github.com/tripdesk/permit/rbac"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Model is the casbin model the policy is written for. Requests of type r
// check actions, requests of type r2 check view scopes. A scope of "all"
// satisfies any requested scope.
const Model = `[request_definition]
r = sub, obj, act
r2 = sub, obj, scope

[policy_definition]
p = sub, obj, act
p2 = sub, obj, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && keyMatch(r.act, p.act)
m2 = r2.sub == p2.sub && keyMatch(r2.obj, p2.obj) && (keyMatch(r2.scope, p2.scope) || p2.scope == "all")
`

// Policies returns one "p" row per granted flag, without the leading "p".
func Policies() [][]string {
	var rows [][]string
	for _, role := range rbac.Roles() {
		if role == rbac.RoleSuperAdmin {
			rows = append(rows, []string{string(role), "*", "*"})
			continue
		}
		for _, res := range rbac.Resources() {
			for _, a := range rbac.Flags(res) {
				if rbac.HasPermission(role, res, a) {
					rows = append(rows, []string{string(role), string(res), string(a)})
				}
			}
		}
	}
	return rows
}

// ViewPolicies returns one "p2" row per view field, without the leading "p2".
func ViewPolicies() [][]string {
	var rows [][]string
	for _, role := range rbac.Roles() {
		if role == rbac.RoleSuperAdmin {
			rows = append(rows, []string{string(role), "*", "*"})
			continue
		}
		for _, res := range rbac.Resources() {
			if scope, ok := rbac.ViewOf(role, res); ok {
				rows = append(rows, []string{string(role), string(res), string(scope)})
			}
		}
	}
	return rows
}

// CSV renders both policy types in casbin's file adapter format.
func CSV() string {
	var sb strings.Builder
	write := func(ptype string, rows [][]string) {
		for _, row := range rows {
			sb.WriteString(ptype)
			sb.WriteString(", ")
			sb.WriteString(strings.Join(row, ", "))
			sb.WriteString("\n")
		}
	}
	write("p", Policies())
	write("p2", ViewPolicies())
	return sb.String()
}

// NewEnforcer returns an enforcer loaded with Model, Policies and
// ViewPolicies.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(Model)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := e.AddPolicies(Policies()); err != nil {
		return nil, err
	}
	if _, err := e.AddNamedPolicies("p2", ViewPolicies()); err != nil {
		return nil, err
	}
	return e, nil
}

// EnforceView checks a view scope against the p2 rows of e.
func EnforceView(e *casbin.Enforcer, role rbac.Role, res rbac.Resource, scope rbac.ViewScope) (bool, error) {
	ctx := casbin.NewEnforceContext("2")
	ctx.EType = "e"
	return e.Enforce(ctx, string(role), string(res), string(scope))
}
