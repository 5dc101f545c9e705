// Package school persists School rows.
//
// Error Contract: stores return sentinel errors (sentinel.ErrNotFound,
// sentinel.ErrAlreadyUsed, sentinel.ErrVersionConflict); services translate
// them into domain errors exactly once.
package school

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

// ErrNotFound is returned when a school is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores schools in memory for tests and the demo environment.
type InMemory struct {
	mu      sync.RWMutex
	schools map[string]*models.School
	nameIdx map[string]string
}

// NewInMemory creates an in-memory school store.
func NewInMemory() *InMemory {
	return &InMemory{
		schools: make(map[string]*models.School),
		nameIdx: make(map[string]string),
	}
}

// CreateIfNameAvailable atomically creates the school if the name is not already taken (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(_ context.Context, school *models.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(school.Name)
	if _, exists := s.nameIdx[lower]; exists {
		return fmt.Errorf("school name must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	key := school.ID.String()
	cp := *school
	s.schools[key] = &cp
	s.nameIdx[lower] = key
	return nil
}

// FindByID retrieves a school by its UUID. Returns a copy; mutations
// persist only through Update or SwapActiveCode.
func (s *InMemory) FindByID(_ context.Context, schoolID id.SchoolID) (*models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.schools[schoolID.String()]; ok {
		cp := *sc
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindByName retrieves a school by name (case-insensitive).
func (s *InMemory) FindByName(_ context.Context, name string) (*models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.nameIdx[strings.ToLower(name)]; ok {
		cp := *s.schools[key]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// SwapActiveCode replaces the school's join code iff the row has not moved
// since the caller read it. Lost races surface as ErrVersionConflict.
func (s *InMemory) SwapActiveCode(_ context.Context, schoolID id.SchoolID, code string, expectedUpdatedAt, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[schoolID.String()]
	if !ok {
		return ErrNotFound
	}
	if !sc.UpdatedAt.Equal(expectedUpdatedAt) {
		return fmt.Errorf("school row changed underneath regeneration: %w", sentinel.ErrVersionConflict)
	}
	sc.ActiveCode = code
	sc.UpdatedAt = now
	return nil
}

// Update replaces a school row. Used for status transitions; code swaps
// go through SwapActiveCode so they stay conditional.
func (s *InMemory) Update(_ context.Context, school *models.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := school.ID.String()
	if _, ok := s.schools[key]; !ok {
		return ErrNotFound
	}
	cp := *school
	s.schools[key] = &cp
	return nil
}

// Delete removes a school row. Registration compensation uses this; there
// is no soft-delete for schools that never finished provisioning.
func (s *InMemory) Delete(_ context.Context, schoolID id.SchoolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := schoolID.String()
	sc, ok := s.schools[key]
	if !ok {
		return ErrNotFound
	}
	delete(s.nameIdx, strings.ToLower(sc.Name))
	delete(s.schools, key)
	return nil
}

// Count returns the total number of schools.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.schools), nil
}
