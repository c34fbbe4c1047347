package guard

import (
	"context"

	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/rbac"
)

// Principal is the authenticated caller.
type Principal struct {
	Subject string    `json:"subject"`
	Role    rbac.Role `json:"role"`
	Region  string    `json:"region,omitempty"`
}

// Actor converts the principal for use with profiles.Service.
func (p Principal) Actor() profiles.Actor {
	return profiles.Actor{ID: p.Subject, Role: p.Role, Region: p.Region}
}

type principalKey struct{}

type tokenKey struct{}

// WithPrincipal attaches an authenticated principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithToken attaches the raw credential presented with a request, for
// extractors to read.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the credential attached by WithToken.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}
