// Package guard enforces rbac rules on HTTP handlers and gRPC methods.
//
// A Guard identifies the caller with an Extractor, evaluates a Rule against
// the caller's role and records the Decision on the request logger under the
// "authz." prefix. Denials are returned as PermissionDenied, missing
// credentials as Unauthenticated.
//
//	g := guard.New(
//		guard.WithExtractor(guard.JWTExtractor(key, "permit")),
//		guard.WithRule("/tripdesk.Payments/Refund",
//			guard.Permission(rbac.ResourcePayments, rbac.ActionRefund)),
//	)
//	mux.Handle("/v1/payments/refund",
//		g.Middleware(guard.Permission(rbac.ResourcePayments, rbac.ActionRefund))(refund))
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/logging"
	"github.com/tripdesk/permit/rbac"

	"github.com/google/uuid"
)

// Rule is either a permission rule, built with Permission, or a view rule,
// built with View.
type Rule struct {
	Resource rbac.Resource
	Action   rbac.Action
	View     rbac.ViewScope
}

// Permission requires an action flag on a resource.
func Permission(res rbac.Resource, action rbac.Action) Rule {
	return Rule{Resource: res, Action: action}
}

// View requires a view scope on a resource.
func View(res rbac.Resource, scope rbac.ViewScope) Rule {
	return Rule{Resource: res, View: scope}
}

// IsView reports whether r is a view rule.
func (r Rule) IsView() bool {
	return r.View != ""
}

// Allows evaluates the rule for a role.
func (r Rule) Allows(role rbac.Role) bool {
	if r.IsView() {
		return rbac.CanAccessView(role, r.Resource, r.View)
	}
	return rbac.HasPermission(role, r.Resource, r.Action)
}

func (r Rule) String() string {
	if r.IsView() {
		return fmt.Sprintf("%s:view=%s", r.Resource, r.View)
	}
	return fmt.Sprintf("%s.%s", r.Resource, r.Action)
}

// Effect is the outcome of a check.
type Effect string

const (
	Allow Effect = "allow"
	Deny  Effect = "deny"
)

// Decision records a single check.
type Decision struct {
	ID       string         `json:"id"`
	Subject  string         `json:"subject,omitempty"`
	Role     rbac.Role      `json:"role,omitempty"`
	Resource rbac.Resource  `json:"resource"`
	Action   rbac.Action    `json:"action,omitempty"`
	View     rbac.ViewScope `json:"view,omitempty"`
	Effect   Effect         `json:"effect"`
	Reason   string         `json:"reason"`
	Time     time.Time      `json:"time"`
}

// Allowed reports whether the decision allowed the request.
func (d Decision) Allowed() bool {
	return d.Effect == Allow
}

// AuditLogger receives every decision a Guard makes.
type AuditLogger func(ctx context.Context, d Decision)

// Option configures a Guard.
type Option func(*Guard)

// WithExtractor sets how callers are identified.
func WithExtractor(e Extractor) Option {
	return func(g *Guard) {
		g.extractor = e
	}
}

// WithAuditLogger replaces the default audit logger, which logs denials.
func WithAuditLogger(l AuditLogger) Option {
	return func(g *Guard) {
		g.audit = l
	}
}

// WithRule guards a gRPC method, given by its full name.
func WithRule(fullMethod string, r Rule) Option {
	return func(g *Guard) {
		g.rules[fullMethod] = r
	}
}

// WithHeader changes the header or metadata key carrying the bearer token.
func WithHeader(name string) Option {
	return func(g *Guard) {
		g.header = name
	}
}

// New returns a Guard.
func New(opts ...Option) *Guard {
	g := &Guard{
		rules:  map[string]Rule{},
		header: "Authorization",
		audit:  LogDecisions(false),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Guard checks rules for the caller of a request.
type Guard struct {
	extractor Extractor
	audit     AuditLogger
	rules     map[string]Rule
	header    string
}

// Authenticate returns the principal attached to ctx or, failing that, the
// one found by the extractor.
func (g *Guard) Authenticate(ctx context.Context) (Principal, error) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p, nil
	}
	if g.extractor == nil {
		return Principal{}, errors.Mark(ErrNoPrincipal, 0)
	}
	return g.extractor(ctx)
}

// Check evaluates rule for the caller. The decision is returned even when
// access is denied.
func (g *Guard) Check(ctx context.Context, rule Rule) (Decision, error) {
	_, d, err := g.check(ctx, rule)
	return d, err
}

func (g *Guard) check(ctx context.Context, rule Rule) (Principal, Decision, error) {
	d := Decision{
		ID:       uuid.NewString(),
		Resource: rule.Resource,
		Action:   rule.Action,
		View:     rule.View,
		Effect:   Deny,
		Time:     timeFunc(),
	}

	p, err := g.Authenticate(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPrincipal) {
			d.Reason = "no principal"
			g.record(ctx, rule, d)
			return Principal{}, d, errors.Mark(ErrUnauthenticated, 0)
		}
		d.Reason = "authentication failed"
		g.record(ctx, rule, d)
		return Principal{}, d, err
	}

	d.Subject = p.Subject
	d.Role = p.Role
	if rule.Allows(p.Role) {
		d.Effect = Allow
		d.Reason = "granted to " + string(p.Role)
		g.record(ctx, rule, d)
		return p, d, nil
	}

	d.Reason = denialReason(p.Role, rule)
	g.record(ctx, rule, d)
	return p, d, errors.Mark(ErrPermissionDenied, 0).
		WithPublicMessage("Access denied: " + d.Reason)
}

func denialReason(role rbac.Role, rule Rule) string {
	if _, ok := rbac.Permissions(role); !ok {
		return fmt.Sprintf("unknown role '%s'", role)
	}
	if rule.IsView() {
		if have, ok := rbac.ViewOf(role, rule.Resource); ok {
			return fmt.Sprintf("role '%s' has '%s' view of %s, not '%s'", role, have, rule.Resource, rule.View)
		}
		return fmt.Sprintf("role '%s' has no view of %s", role, rule.Resource)
	}
	return fmt.Sprintf("role '%s' can not %s %s", role, rule.Action, rule.Resource)
}

func (g *Guard) record(ctx context.Context, rule Rule, d Decision) {
	logging.Track(ctx, "authz.decision", d.ID)
	logging.Track(ctx, "authz.rule", rule.String())
	logging.Track(ctx, "authz.role", d.Role)
	logging.Track(ctx, "authz.effect", string(d.Effect))
	logging.Track(ctx, "authz.reason", d.Reason)
	if g.audit != nil {
		g.audit(ctx, d)
	}
}

// LogDecisions returns an AuditLogger that writes denials to the request
// logger, and allows too when allows is set.
func LogDecisions(allows bool) AuditLogger {
	return func(ctx context.Context, d Decision) {
		if d.Allowed() {
			if allows {
				logging.Infow(ctx, "authz: allowed", "authz.subject", d.Subject)
			}
			return
		}
		logging.Warnw(ctx, "authz: denied", "authz.subject", d.Subject)
	}
}
