// Package profiletests provides common acceptance tests for profiles.Store
// implementations.
package profiletests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pbool(b bool) *bool {
	return &b
}

func seed(t *testing.T, store profiles.Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []profiles.Profile{
		{ID: "u1", Email: "ana@example.com", Name: "Ana", Role: rbac.RoleUser, Region: "emea"},
		{ID: "u2", Email: "bo@example.com", Name: "Bo", Role: rbac.RoleSubAdmin, Region: "emea"},
		{ID: "u3", Email: "cy@example.com", Name: "Cy", Role: rbac.RoleRegionalAdmin, Region: "apac"},
		{ID: "u4", Email: "di@example.com", Name: "Di", Role: rbac.RoleAdmin},
		{ID: "u5", Email: "ed@example.com", Name: "Ed", Role: rbac.RoleUser, Region: "apac", Suspended: true},
	} {
		require.NoError(t, store.Create(ctx, p), p.ID)
	}
}

func ids(ps []profiles.Profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

//nolint:funlen // This is a test helper.
func Run(t *testing.T, newStore func(t *testing.T) profiles.Store) {
	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		before := time.Now().Add(-time.Minute)

		in := profiles.Profile{
			ID:     "a1",
			Email:  "agent@example.com",
			Name:   "Agent",
			Role:   rbac.RoleRegionalAdmin,
			Region: "latam",
		}
		require.NoError(t, store.Create(ctx, in))

		got, err := store.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, in.Email, got.Email)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Role, got.Role)
		assert.Equal(t, in.Region, got.Region)
		assert.False(t, got.Suspended)
		assert.True(t, got.UpdatedAt.After(before), "updated at %v", got.UpdatedAt)

		byEmail, err := store.GetByEmail(ctx, "agent@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", byEmail.ID)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "nope")
		require.ErrorIs(t, err, profiles.ErrNotFound)
		assert.Equal(t, 404, errors.HTTPStatusCode(err))

		_, err = store.GetByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, profiles.ErrNotFound)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, profiles.Profile{ID: "d1", Email: "d@example.com", Role: rbac.RoleUser}))

		err := store.Create(ctx, profiles.Profile{ID: "d1", Email: "other@example.com", Role: rbac.RoleUser})
		require.ErrorIs(t, err, profiles.ErrAlreadyExists)

		err = store.Create(ctx, profiles.Profile{ID: "d2", Email: "d@example.com", Role: rbac.RoleUser})
		require.ErrorIs(t, err, profiles.ErrAlreadyExists)
	})

	t.Run("CreateInvalid", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		err := store.Create(ctx, profiles.Profile{ID: "x", Email: "x@example.com", Role: "owner"})
		require.ErrorIs(t, err, profiles.ErrInvalidRole)

		err = store.Create(ctx, profiles.Profile{ID: "x", Role: rbac.RoleUser})
		require.ErrorIs(t, err, profiles.ErrInvalidProfile)

		_, err = store.Get(ctx, "x")
		require.ErrorIs(t, err, profiles.ErrNotFound)
	})

	t.Run("UpdateRole", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		seed(t, store)

		require.NoError(t, store.UpdateRole(ctx, "u1", rbac.RoleMaintenanceAdmin))
		got, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, rbac.RoleMaintenanceAdmin, got.Role)

		require.ErrorIs(t, store.UpdateRole(ctx, "u1", "owner"), profiles.ErrInvalidRole)
		require.ErrorIs(t, store.UpdateRole(ctx, "missing", rbac.RoleAdmin), profiles.ErrNotFound)

		got, err = store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, rbac.RoleMaintenanceAdmin, got.Role, "invalid update must not apply")
	})

	t.Run("SetSuspended", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		seed(t, store)

		require.NoError(t, store.SetSuspended(ctx, "u1", true))
		got, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, got.Suspended)

		require.NoError(t, store.SetSuspended(ctx, "u5", false))
		got, err = store.Get(ctx, "u5")
		require.NoError(t, err)
		assert.False(t, got.Suspended)

		require.ErrorIs(t, store.SetSuspended(ctx, "missing", true), profiles.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		seed(t, store)

		tests := []struct {
			name   string
			filter profiles.Filter
			want   []string
		}{
			{"everything", profiles.Filter{}, []string{"u1", "u2", "u3", "u4", "u5"}},
			{"by role", profiles.Filter{Role: rbac.RoleUser}, []string{"u1", "u5"}},
			{"by region", profiles.Filter{Region: "emea"}, []string{"u1", "u2"}},
			{"suspended", profiles.Filter{Suspended: pbool(true)}, []string{"u5"}},
			{"not suspended", profiles.Filter{Suspended: pbool(false)}, []string{"u1", "u2", "u3", "u4"}},
			{"combined", profiles.Filter{Role: rbac.RoleUser, Region: "apac"}, []string{"u5"}},
			{"no match", profiles.Filter{Region: "mars"}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := store.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got))
			})
		}
	})

	t.Run("ConcurrentWrites", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- store.Create(ctx, profiles.Profile{
					ID:    fmt.Sprintf("c%02d", i),
					Email: fmt.Sprintf("c%02d@example.com", i),
					Role:  rbac.RoleUser,
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := store.List(ctx, profiles.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 20)
	})
}
