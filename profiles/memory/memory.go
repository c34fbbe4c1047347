// Package memory provides an in-memory profiles.Store, for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/rbac"
)

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    map[string]profiles.Profile{},
		byEmail: map[string]string{},
	}
}

// Store keeps profiles in maps guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]profiles.Profile
	byEmail map[string]string
}

var _ profiles.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, p profiles.Profile) error {
	if err := profiles.Validate(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return errors.Mark(profiles.ErrAlreadyExists, 0)
	}
	if _, ok := s.byEmail[p.Email]; ok {
		return errors.Mark(profiles.ErrAlreadyExists, 0)
	}
	p.UpdatedAt = time.Now().UTC()
	s.byID[p.ID] = p
	s.byEmail[p.Email] = p.ID
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return profiles.Profile{}, errors.Mark(profiles.ErrNotFound, 0)
	}
	return p, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return profiles.Profile{}, errors.Mark(profiles.ErrNotFound, 0)
	}
	return s.byID[id], nil
}

func (s *Store) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	if err := profiles.ValidateRole(role); err != nil {
		return err
	}
	return s.update(id, func(p *profiles.Profile) { p.Role = role })
}

func (s *Store) SetSuspended(ctx context.Context, id string, suspended bool) error {
	return s.update(id, func(p *profiles.Profile) { p.Suspended = suspended })
}

func (s *Store) List(ctx context.Context, f profiles.Filter) ([]profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []profiles.Profile
	for _, p := range s.byID {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) update(id string, fn func(*profiles.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return errors.Mark(profiles.ErrNotFound, 1)
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	s.byID[id] = p
	return nil
}
