package main

import (
	"context"
	"testing"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/guard"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/profiles/memory"
	"github.com/tripdesk/permit/profiles/sqlite"
	"github.com/tripdesk/permit/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestOpenStore(t *testing.T) {
	s, closeStore, err := openStore("memory", "", "")
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	assert.NoError(t, closeStore())

	s, closeStore, err = openStore("sqlite", ":memory:", "test_")
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)

	ctx := context.Background()
	require.NoError(t, s.Create(ctx, profiles.Profile{ID: "1", Email: "a@tripdesk.test", Role: rbac.RoleUser}))
	got, err := s.GetByEmail(ctx, "a@tripdesk.test")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.NoError(t, closeStore())

	_, _, err = openStore("mongo", "", "")
	assert.Equal(t, codes.InvalidArgument, errors.Code(err))
}

func TestIssueTokenFromMemoryStore(t *testing.T) {
	ctx := context.Background()
	key := []byte("test-signing-key")
	store, _, err := openStore("memory", "", "")
	require.NoError(t, err)
	svc := profiles.NewService(store)

	_, err = issueToken(ctx, svc, key, "permit", "root@tripdesk.test", time.Hour)
	assert.Equal(t, codes.NotFound, errors.Code(err))
	assert.Contains(t, err.Error(), "--bootstrap-admin")

	root, err := svc.EnsureSuperAdmin(ctx, "root@tripdesk.test", "Root")
	require.NoError(t, err)

	tok, err := issueToken(ctx, svc, key, "permit", "  Root@TripDesk.test ", time.Hour)
	require.NoError(t, err)

	// The same process keeps the profile, so the token authenticates.
	extract := guard.ProfileExtractor(guard.JWTExtractor(key, "permit"), svc)
	p, err := extract(guard.WithToken(ctx, tok))
	require.NoError(t, err)
	assert.Equal(t, root.ID, p.Subject)
	assert.Equal(t, rbac.RoleSuperAdmin, p.Role)

	// A fresh memory store, as in a second process, does not know the subject.
	fresh := profiles.NewService(memory.New())
	_, err = guard.ProfileExtractor(guard.JWTExtractor(key, "permit"), fresh)(guard.WithToken(ctx, tok))
	assert.ErrorIs(t, err, guard.ErrUnknownSubject)
}

func TestExitAfterIssue(t *testing.T) {
	assert.False(t, exitAfterIssue("memory"))
	assert.False(t, exitAfterIssue(""))
	assert.True(t, exitAfterIssue("sqlite"))
	assert.True(t, exitAfterIssue("postgres"))
}
