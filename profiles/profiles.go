// Package profiles persists the role and region of each user and applies the
// rules for changing them.
//
// A Store holds profiles. Three are provided: memory for tests and local
// development, sqlite and postgres for everything else. Service wraps a Store
// with the role assignment, suspension and visibility rules from package rbac.
package profiles

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/rbac"

	pluralize "github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
	"google.golang.org/grpc/codes"
)

var (
	// ErrNotFound is returned when a profile does not exist.
	ErrNotFound = errors.NewC("profile not found", codes.NotFound)

	// ErrAlreadyExists is returned when a profile ID or email is taken.
	ErrAlreadyExists = errors.NewC("profile already exists", codes.AlreadyExists)

	// ErrInvalidRole is returned when a role is not one of rbac.Roles.
	ErrInvalidRole = errors.NewC("invalid role", codes.InvalidArgument)

	// ErrInvalidProfile is returned for profiles missing an ID or email.
	ErrInvalidProfile = errors.NewC("invalid profile", codes.InvalidArgument)

	// ErrSuspended is returned when resolving the role of a suspended user.
	ErrSuspended = errors.NewC("account suspended", codes.PermissionDenied).
			WithPublicMessage("This account has been suspended")

	// ErrSelfSuspend is returned when a user tries to suspend themselves.
	ErrSelfSuspend = errors.NewC("users can not suspend themselves", codes.FailedPrecondition)
)

// Profile is a user as far as access control is concerned.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	Region    string    `json:"region,omitempty"`
	Suspended bool      `json:"suspended"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Role      rbac.Role
	Region    string
	Suspended *bool
}

// Match reports whether p passes the filter.
func (f Filter) Match(p Profile) bool {
	if f.Role != "" && p.Role != f.Role {
		return false
	}
	if f.Region != "" && p.Region != f.Region {
		return false
	}
	if f.Suspended != nil && p.Suspended != *f.Suspended {
		return false
	}
	return true
}

// Store persists profiles. Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new profile. IDs and emails are unique.
	Create(ctx context.Context, p Profile) error

	// Get returns the profile with the given ID.
	Get(ctx context.Context, id string) (Profile, error)

	// GetByEmail returns the profile with the given email.
	GetByEmail(ctx context.Context, email string) (Profile, error)

	// UpdateRole changes a profile's role.
	UpdateRole(ctx context.Context, id string, role rbac.Role) error

	// SetSuspended suspends or reinstates a profile.
	SetSuspended(ctx context.Context, id string, suspended bool) error

	// List returns matching profiles ordered by email.
	List(ctx context.Context, f Filter) ([]Profile, error)
}

// Validate checks the fields every store requires.
func Validate(p Profile) error {
	if p.ID == "" || p.Email == "" {
		return errors.Mark(ErrInvalidProfile, 0)
	}
	return ValidateRole(p.Role)
}

// ValidateRole rejects roles the resolver does not know about.
func ValidateRole(r rbac.Role) error {
	if !r.Valid() {
		return errors.Mark(ErrInvalidRole, 0).
			WithPublicMessage("unknown role " + strings.TrimSpace(string(r)))
	}
	return nil
}

var pluralizer = pluralize.NewClient()

// TableName returns the SQL table holding profiles, e.g. "permit_profiles".
func TableName(prefix string) string {
	return prefix + pluralizer.Plural(strcase.ToSnake(reflect.TypeOf(Profile{}).Name()))
}
