package profiles

import (
	"context"
	"strings"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/logging"
	"github.com/tripdesk/permit/rbac"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
)

// Actor is the user on whose behalf a Service call is made.
type Actor struct {
	ID     string
	Role   rbac.Role
	Region string
}

// Service applies the rbac rules to profile changes.
type Service struct {
	store Store
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Register creates a profile with the base user role.
func (s *Service) Register(ctx context.Context, email, name, region string) (Profile, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Profile{}, errors.Mark(ErrInvalidProfile, 0).WithPublicMessage("email is required")
	}

	p := Profile{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   strings.TrimSpace(name),
		Role:   rbac.RoleUser,
		Region: region,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	logging.Infow(ctx, "profiles: registered", "profile.id", p.ID, "profile.region", region)
	return s.store.Get(ctx, p.ID)
}

// GetByEmail returns a profile by email, matched the way Register stores it.
func (s *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return s.store.GetByEmail(ctx, NormalizeEmail(email))
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.store.Get(ctx, id)
}

// Resolve returns the profile of an active user. Suspended users resolve to
// ErrSuspended.
func (s *Service) Resolve(ctx context.Context, id string) (Profile, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if p.Suspended {
		return Profile{}, errors.Mark(ErrSuspended, 0)
	}
	return p, nil
}

// Role resolves the role a user currently holds. Suspended users hold none.
func (s *Service) Role(ctx context.Context, id string) (rbac.Role, error) {
	p, err := s.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

// AssignRole changes the role of targetID. Only roles that
// rbac.CanAssignRole allows for the actor can be granted.
func (s *Service) AssignRole(ctx context.Context, actor Actor, targetID string, role rbac.Role) (Profile, error) {
	logging.Track(ctx, "profiles.target", targetID)
	if err := ValidateRole(role); err != nil {
		return Profile{}, err
	}
	if !rbac.CanAssignRole(actor.Role, role) {
		return Profile{}, errors.Codef(codes.PermissionDenied, "%s may not assign role %s", actor.Role, role).
			WithPublicMessage("You are not allowed to assign the " + rbac.DisplayName(role) + " role")
	}
	if err := s.store.UpdateRole(ctx, targetID, role); err != nil {
		return Profile{}, err
	}
	logging.Infow(ctx, "profiles: role assigned", "actor.id", actor.ID, "profile.id", targetID, "profile.role", role)
	return s.store.Get(ctx, targetID)
}

// Suspend suspends or reinstates targetID. The actor needs the users.suspend
// flag and must rank at or above the target. Nobody can suspend themselves.
func (s *Service) Suspend(ctx context.Context, actor Actor, targetID string, suspended bool) (Profile, error) {
	logging.Track(ctx, "profiles.target", targetID)
	if actor.ID == targetID {
		return Profile{}, errors.Mark(ErrSelfSuspend, 0)
	}
	if !rbac.HasPermission(actor.Role, rbac.ResourceUsers, rbac.ActionSuspend) {
		return Profile{}, errors.Codef(codes.PermissionDenied, "%s may not suspend users", actor.Role).
			WithPublicMessage("You are not allowed to suspend users")
	}

	target, err := s.store.Get(ctx, targetID)
	if err != nil {
		return Profile{}, err
	}
	if !rbac.HasHigherOrEqualRole(actor.Role, target.Role) {
		return Profile{}, errors.Codef(codes.PermissionDenied, "%s may not suspend %s", actor.Role, target.Role).
			WithPublicMessage("You can not suspend a user with a higher role")
	}

	if err := s.store.SetSuspended(ctx, targetID, suspended); err != nil {
		return Profile{}, err
	}
	logging.Infow(ctx, "profiles: suspension changed", "actor.id", actor.ID, "profile.id", targetID, "profile.suspended", suspended)
	return s.store.Get(ctx, targetID)
}

// Visible returns the profiles the actor may list, based on their view of
// the users resource.
func (s *Service) Visible(ctx context.Context, actor Actor) ([]Profile, error) {
	switch {
	case rbac.CanAccessView(actor.Role, rbac.ResourceUsers, rbac.ViewAll):
		return s.store.List(ctx, Filter{})

	case rbac.CanAccessView(actor.Role, rbac.ResourceUsers, rbac.ViewRegion) && actor.Region != "":
		return s.store.List(ctx, Filter{Region: actor.Region})

	case rbac.CanAccessView(actor.Role, rbac.ResourceUsers, rbac.ViewRegion),
		rbac.CanAccessView(actor.Role, rbac.ResourceUsers, rbac.ViewBasic),
		rbac.CanAccessView(actor.Role, rbac.ResourceUsers, rbac.ViewAssigned):
		p, err := s.store.Get(ctx, actor.ID)
		if errors.Is(err, ErrNotFound) {
			return []Profile{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []Profile{p}, nil
	}
	return []Profile{}, nil
}

// EnsureSuperAdmin makes sure a super admin with the given email exists. It
// bypasses rbac.CanAssignRole and is only meant for bootstrapping a fresh
// deployment.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, name string) (Profile, error) {
	email = NormalizeEmail(email)
	p, err := s.store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		p = Profile{ID: uuid.NewString(), Email: email, Name: name, Role: rbac.RoleSuperAdmin}
		if err := s.store.Create(ctx, p); err != nil {
			return Profile{}, err
		}
	case err != nil:
		return Profile{}, err
	case p.Role != rbac.RoleSuperAdmin:
		if err := s.store.UpdateRole(ctx, p.ID, rbac.RoleSuperAdmin); err != nil {
			return Profile{}, err
		}
	default:
		return p, nil
	}
	logging.Warnw(ctx, "profiles: bootstrapped super admin", "profile.email", email)
	return s.store.GetByEmail(ctx, email)
}
