package guard

import (
	"context"
	"testing"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/logging"
	"github.com/tripdesk/permit/rbac"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
)

func as(role rbac.Role) context.Context {
	return WithPrincipal(context.Background(), Principal{Subject: "u-" + string(role), Role: role})
}

func TestRule(t *testing.T) {
	r := Permission(rbac.ResourcePayments, rbac.ActionRefund)
	assert.False(t, r.IsView())
	assert.Equal(t, "payments.refund", r.String())
	assert.True(t, r.Allows(rbac.RoleAdmin))
	assert.False(t, r.Allows(rbac.RoleRegionalAdmin))

	v := View(rbac.ResourceApplications, rbac.ViewRegion)
	assert.True(t, v.IsView())
	assert.Equal(t, "applications:view=region", v.String())
	assert.True(t, v.Allows(rbac.RoleRegionalAdmin))
	assert.True(t, v.Allows(rbac.RoleAdmin), "all satisfies region")
	assert.False(t, v.Allows(rbac.RoleSubAdmin), "assigned does not satisfy region")

	assert.False(t, Rule{}.Allows(rbac.RoleAdmin))
	assert.True(t, Rule{}.Allows(rbac.RoleSuperAdmin))
}

func TestCheck(t *testing.T) {
	g := New()

	tests := []struct {
		name   string
		ctx    context.Context
		rule   Rule
		effect Effect
		code   codes.Code
		reason string
	}{
		{"allowed", as(rbac.RoleAdmin), Permission(rbac.ResourcePayments, rbac.ActionRefund), Allow, codes.OK, "granted to admin"},
		{"denied flag", as(rbac.RoleSubAdmin), Permission(rbac.ResourcePayments, rbac.ActionRefund), Deny, codes.PermissionDenied, "role 'sub_admin' can not refund payments"},
		{"denied view", as(rbac.RoleSubAdmin), View(rbac.ResourceApplications, rbac.ViewRegion), Deny, codes.PermissionDenied, "role 'sub_admin' has 'assigned' view of applications, not 'region'"},
		{"system has no view", as(rbac.RoleMaintenanceAdmin), View(rbac.ResourceSystem, rbac.ViewSystem), Deny, codes.PermissionDenied, "role 'maintenance_admin' has no view of system"},
		{"unknown role", as("owner"), Permission(rbac.ResourceApplications, rbac.ActionCreate), Deny, codes.PermissionDenied, "unknown role 'owner'"},
		{"super admin", as(rbac.RoleSuperAdmin), Permission("invoices", "anything"), Allow, codes.OK, "granted to super_admin"},
		{"no principal", context.Background(), Permission(rbac.ResourceApplications, rbac.ActionCreate), Deny, codes.Unauthenticated, "no principal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := g.Check(tt.ctx, tt.rule)
			assert.Equal(t, tt.code, errors.Code(err))
			assert.Equal(t, tt.effect, d.Effect)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.rule.Resource, d.Resource)
			_, perr := uuid.Parse(d.ID)
			assert.NoError(t, perr)
			assert.False(t, d.Time.IsZero())
		})
	}
}

func TestCheckDeniedMessage(t *testing.T) {
	_, err := New().Check(as(rbac.RoleUser), Permission(rbac.ResourceApplications, rbac.ActionApprove))
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "Access denied: role 'user' can not approve applications", errors.PublicMessage(err))
	assert.Equal(t, 403, errors.HTTPStatusCode(err))
}

func TestCheckUsesExtractor(t *testing.T) {
	g := New(WithExtractor(func(ctx context.Context) (Principal, error) {
		return Principal{Subject: "x", Role: rbac.RoleAdmin}, nil
	}))
	d, err := g.Check(context.Background(), Permission(rbac.ResourceSystem, rbac.ActionLogs))
	require.NoError(t, err)
	assert.Equal(t, "x", d.Subject)

	// An attached principal wins.
	d, err = g.Check(as(rbac.RoleUser), Permission(rbac.ResourceSystem, rbac.ActionLogs))
	require.Error(t, err)
	assert.Equal(t, rbac.RoleUser, d.Role)
}

func TestCheckPropagatesExtractorErrors(t *testing.T) {
	g := New(WithExtractor(func(ctx context.Context) (Principal, error) {
		return Principal{}, errors.Mark(ErrInvalidToken, 0)
	}))
	d, err := g.Check(context.Background(), Permission(rbac.ResourceUsers, rbac.ActionEdit))
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "authentication failed", d.Reason)
}

func TestAuditLogger(t *testing.T) {
	var got []Decision
	g := New(WithAuditLogger(func(ctx context.Context, d Decision) {
		got = append(got, d)
	}))

	g.Check(as(rbac.RoleAdmin), Permission(rbac.ResourceUsers, rbac.ActionSuspend))
	g.Check(as(rbac.RoleUser), Permission(rbac.ResourceUsers, rbac.ActionSuspend))
	g.Check(context.Background(), Permission(rbac.ResourceUsers, rbac.ActionSuspend))

	require.Len(t, got, 3)
	assert.True(t, got[0].Allowed())
	assert.False(t, got[1].Allowed())
	assert.Empty(t, got[2].Role)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestDecisionsAreTracked(t *testing.T) {
	core, obs := observer.New(zap.InfoLevel)
	ctx := logging.With(as(rbac.RoleSubAdmin), logging.NewZapLogger(zap.New(core)))

	_, err := New(WithAuditLogger(LogDecisions(true))).Check(ctx, Permission(rbac.ResourceDocuments, rbac.ActionDelete))
	require.Error(t, err)

	require.Equal(t, 1, obs.Len())
	entry := obs.All()[0]
	assert.Equal(t, "authz: denied", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "documents.delete", fields["authz.rule"])
	assert.Equal(t, "deny", fields["authz.effect"])
	assert.Equal(t, "u-sub_admin", fields["authz.subject"])
}

func TestLogDecisions(t *testing.T) {
	core, obs := observer.New(zap.InfoLevel)
	ctx := logging.With(context.Background(), logging.NewZapLogger(zap.New(core)))

	LogDecisions(false)(ctx, Decision{Effect: Allow})
	assert.Equal(t, 0, obs.Len())

	LogDecisions(true)(ctx, Decision{Effect: Allow})
	require.Equal(t, 1, obs.Len())
	assert.Equal(t, "authz: allowed", obs.All()[0].Message)

	LogDecisions(false)(ctx, Decision{Effect: Deny})
	require.Equal(t, 2, obs.Len())
	assert.Equal(t, zap.WarnLevel, obs.All()[1].Level)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := Principal{Subject: "u1", Role: rbac.RoleAdmin, Region: "emea"}
	got, ok := PrincipalFromContext(WithPrincipal(context.Background(), p))
	require.True(t, ok)
	assert.Equal(t, p, got)

	a := p.Actor()
	assert.Equal(t, "u1", a.ID)
	assert.Equal(t, rbac.RoleAdmin, a.Role)
	assert.Equal(t, "emea", a.Region)

	assert.Empty(t, TokenFromContext(context.Background()))
	assert.Equal(t, "abc", TokenFromContext(WithToken(context.Background(), "abc")))
}
