package guard

import (
	"net/http"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/serverutil"
)

// RequestContext attaches the bearer token presented with r.
func (g *Guard) RequestContext(r *http.Request) *http.Request {
	token := serverutil.BearerToken(r.Header.Get(g.header))
	if token == "" {
		return r
	}
	return r.WithContext(WithToken(r.Context(), token))
}

// Middleware only lets requests through whose caller satisfies rule. The
// principal is attached to the request context.
func (g *Guard) Middleware(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = g.RequestContext(r)
			p, _, err := g.check(r.Context(), rule)
			if err != nil {
				serverutil.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Authenticated only lets requests through that carry a valid principal,
// whatever their role.
func (g *Guard) Authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = g.RequestContext(r)
			p, err := g.Authenticate(r.Context())
			if err != nil {
				if errors.Is(err, ErrNoPrincipal) {
					err = errors.Mark(ErrUnauthenticated, 0)
				}
				serverutil.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
