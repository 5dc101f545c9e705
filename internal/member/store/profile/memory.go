// Package profile stores ProfileRecord rows.
//
// Error Contract:
// - Create returns ErrAlreadyUsed when the identity already holds a
//   profile in the school (or the profile ID is taken).
// - Lookups return ErrNotFound when no row matches.
// - Infrastructure failures are returned wrapped with context.
package profile

import (
	"context"
	"fmt"
	"sync"

	"homeroom/internal/member/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

// InMemory stores profiles in memory for tests.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]*models.ProfileRecord
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.ProfileID]*models.ProfileRecord)}
}

func (s *InMemory) Create(_ context.Context, profile *models.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return fmt.Errorf("profile already exists: %w", sentinel.ErrAlreadyUsed)
	}
	for _, existing := range s.profiles {
		if existing.IdentityID == profile.IdentityID && existing.SchoolID == profile.SchoolID {
			return fmt.Errorf("identity already has a profile in this school: %w", sentinel.ErrAlreadyUsed)
		}
	}
	cp := *profile
	s.profiles[profile.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, profileID id.ProfileID) (*models.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[profileID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) FindByIdentityAndSchool(_ context.Context, identityID id.IdentityID, schoolID id.SchoolID) (*models.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.IdentityID == identityID && p.SchoolID == schoolID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) Delete(_ context.Context, profileID id.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profileID]; !ok {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	delete(s.profiles, profileID)
	return nil
}

func (s *InMemory) CountBySchoolAndRole(_ context.Context, schoolID id.SchoolID, role id.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.profiles {
		if p.SchoolID == schoolID && p.Role == role {
			count++
		}
	}
	return count, nil
}
