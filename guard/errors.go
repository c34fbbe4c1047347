package guard

import (
	"github.com/tripdesk/permit/errors"

	"google.golang.org/grpc/codes"
)

var (
	// ErrNoPrincipal is returned by extractors that found no credentials.
	// Chains move on to the next extractor.
	ErrNoPrincipal = errors.NewC("no principal", codes.Unauthenticated)

	// ErrUnauthenticated is returned when a rule is checked without a
	// principal.
	ErrUnauthenticated = errors.NewC("unauthenticated", codes.Unauthenticated).
				WithPublicMessage("Authentication required")

	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.NewC("invalid token", codes.Unauthenticated).
			WithPublicMessage("Invalid or expired token")

	// ErrUnknownSubject is returned when a token names a user with no
	// profile.
	ErrUnknownSubject = errors.NewC("unknown subject", codes.Unauthenticated).
				WithPublicMessage("Invalid or expired token")

	// ErrPermissionDenied is returned when the principal's role does not
	// satisfy a rule.
	ErrPermissionDenied = errors.NewC("permission denied", codes.PermissionDenied)
)
