package guard

import (
	"context"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/logging"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/rbac"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Allows for time to be stubbed in tests.
var timeFunc = time.Now

// Claims carried by role tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role   rbac.Role `json:"role"`
	Region string    `json:"region,omitempty"`
}

// IssueToken signs a token for p that expires after ttl.
func IssueToken(key []byte, issuer string, p Principal, ttl time.Duration) (string, error) {
	now := timeFunc()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:   p.Role,
		Region: p.Region,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseToken verifies a token and returns the principal it names.
func ParseToken(key []byte, issuer, raw string) (Principal, error) {
	token, err := jwt.ParseWithClaims(
		raw,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(timeFunc),
	)
	if err != nil {
		return Principal{}, errors.Mark(ErrInvalidToken, 0)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Principal{}, errors.Mark(ErrInvalidToken, 0)
	}
	return Principal{Subject: claims.Subject, Role: claims.Role, Region: claims.Region}, nil
}

// Extractor identifies the caller of a request. Extractors return
// ErrNoPrincipal when the request carries no credentials they understand.
type Extractor func(ctx context.Context) (Principal, error)

// JWTExtractor reads a role token attached with WithToken.
func JWTExtractor(key []byte, issuer string) Extractor {
	return func(ctx context.Context) (Principal, error) {
		raw := TokenFromContext(ctx)
		if raw == "" {
			return Principal{}, errors.Mark(ErrNoPrincipal, 0)
		}
		p, err := ParseToken(key, issuer, raw)
		if err != nil {
			logging.Track(ctx, "authz.reason", "invalid token")
			return Principal{}, err
		}
		return p, nil
	}
}

// ProfileExtractor uses base to identify the caller, then replaces the role
// and region with the ones stored in their profile. Tokens therefore stop
// granting a role as soon as it is changed or the user is suspended.
func ProfileExtractor(base Extractor, svc *profiles.Service) Extractor {
	return func(ctx context.Context) (Principal, error) {
		p, err := base(ctx)
		if err != nil {
			return Principal{}, err
		}
		prof, err := svc.Resolve(ctx, p.Subject)
		if errors.Is(err, profiles.ErrNotFound) {
			return Principal{}, errors.Mark(ErrUnknownSubject, 0)
		}
		if err != nil {
			return Principal{}, err
		}
		return Principal{Subject: prof.ID, Role: prof.Role, Region: prof.Region}, nil
	}
}

// ChainExtractors tries each extractor in turn and returns the first
// principal found. Errors other than ErrNoPrincipal stop the chain.
func ChainExtractors(extractors ...Extractor) Extractor {
	return func(ctx context.Context) (Principal, error) {
		for _, e := range extractors {
			p, err := e(ctx)
			if errors.Is(err, ErrNoPrincipal) {
				continue
			}
			return p, err
		}
		return Principal{}, errors.Mark(ErrNoPrincipal, 0)
	}
}
