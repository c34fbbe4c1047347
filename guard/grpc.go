package guard

import (
	"context"

	"github.com/tripdesk/permit/serverutil"

	"google.golang.org/grpc"
)

// UnaryServerInterceptor enforces the rules registered with WithRule. Methods
// without a rule pass through untouched.
func (g *Guard) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rule, ok := g.rules[info.FullMethod]
		if !ok {
			return handler(ctx, req)
		}

		if token := serverutil.BearerToken(serverutil.IncomingHeader(ctx, g.header)); token != "" {
			ctx = WithToken(ctx, token)
		}
		p, _, err := g.check(ctx, rule)
		if err != nil {
			return nil, err
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}
