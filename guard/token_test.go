package guard

import (
	"context"
	"testing"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/profiles/memory"
	"github.com/tripdesk/permit/rbac"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

var testKey = []byte("test-signing-key")

func TestTokenRoundTrip(t *testing.T) {
	in := Principal{Subject: "u1", Role: rbac.RoleRegionalAdmin, Region: "emea"}
	token, err := IssueToken(testKey, "permit", in, time.Hour)
	require.NoError(t, err)

	out, err := ParseToken(testKey, "permit", token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseTokenRejects(t *testing.T) {
	p := Principal{Subject: "u1", Role: rbac.RoleAdmin}
	valid, err := IssueToken(testKey, "permit", p, time.Hour)
	require.NoError(t, err)

	expired, err := IssueToken(testKey, "permit", p, -time.Hour)
	require.NoError(t, err)

	noSubject, err := IssueToken(testKey, "permit", Principal{Role: rbac.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "permit"},
		Role:             rbac.RoleSuperAdmin,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    []byte
		issuer string
		token  string
	}{
		{"wrong key", []byte("other"), "permit", valid},
		{"wrong issuer", testKey, "someone-else", valid},
		{"expired", testKey, "permit", expired},
		{"no subject", testKey, "permit", noSubject},
		{"unsigned", testKey, "permit", none},
		{"garbage", testKey, "permit", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.key, tt.issuer, tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, codes.Unauthenticated, errors.Code(err))
		})
	}
}

func TestTokenExpiryUsesClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeFunc = func() time.Time { return now }
	t.Cleanup(func() { timeFunc = time.Now })

	token, err := IssueToken(testKey, "permit", Principal{Subject: "u1", Role: rbac.RoleUser}, time.Minute)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = ParseToken(testKey, "permit", token)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = ParseToken(testKey, "permit", token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExtractor(t *testing.T) {
	extract := JWTExtractor(testKey, "permit")

	_, err := extract(context.Background())
	require.ErrorIs(t, err, ErrNoPrincipal)

	token, err := IssueToken(testKey, "permit", Principal{Subject: "u1", Role: rbac.RoleSubAdmin}, time.Hour)
	require.NoError(t, err)
	p, err := extract(WithToken(context.Background(), token))
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSubAdmin, p.Role)

	_, err = extract(WithToken(context.Background(), "junk"))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestProfileExtractor(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, profiles.Profile{ID: "u1", Email: "a@example.com", Role: rbac.RoleAdmin, Region: "emea"}))
	require.NoError(t, store.Create(ctx, profiles.Profile{ID: "u2", Email: "b@example.com", Role: rbac.RoleAdmin, Suspended: true}))
	extract := ProfileExtractor(JWTExtractor(testKey, "permit"), profiles.NewService(store))

	// The token claims super admin, the profile says admin.
	token := func(sub string) context.Context {
		tok, err := IssueToken(testKey, "permit", Principal{Subject: sub, Role: rbac.RoleSuperAdmin}, time.Hour)
		require.NoError(t, err)
		return WithToken(ctx, tok)
	}

	p, err := extract(token("u1"))
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "u1", Role: rbac.RoleAdmin, Region: "emea"}, p)

	_, err = extract(token("u2"))
	require.ErrorIs(t, err, profiles.ErrSuspended)
	assert.Equal(t, codes.PermissionDenied, errors.Code(err))

	_, err = extract(token("ghost"))
	require.ErrorIs(t, err, ErrUnknownSubject)

	_, err = extract(ctx)
	require.ErrorIs(t, err, ErrNoPrincipal)
}

func TestChainExtractors(t *testing.T) {
	none := func(ctx context.Context) (Principal, error) {
		return Principal{}, errors.Mark(ErrNoPrincipal, 0)
	}
	fixed := func(role rbac.Role) Extractor {
		return func(ctx context.Context) (Principal, error) {
			return Principal{Subject: "x", Role: role}, nil
		}
	}
	failing := func(ctx context.Context) (Principal, error) {
		return Principal{}, errors.Mark(ErrInvalidToken, 0)
	}

	p, err := ChainExtractors(none, fixed(rbac.RoleAdmin), fixed(rbac.RoleUser))(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, p.Role)

	_, err = ChainExtractors(none, failing, fixed(rbac.RoleUser))(context.Background())
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ChainExtractors(none, none)(context.Background())
	require.ErrorIs(t, err, ErrNoPrincipal)

	_, err = ChainExtractors()(context.Background())
	require.ErrorIs(t, err, ErrNoPrincipal)
}
