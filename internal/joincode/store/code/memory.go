// Package code persists AccessCode rows keyed by the code string itself.
//
// Error Contract: stores return sentinel errors (sentinel.ErrNotFound,
// sentinel.ErrAlreadyUsed); services translate them into domain errors
// exactly once.
package code

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"homeroom/internal/joincode/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

// ErrNotFound is returned when a code is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores access codes in memory for tests and the demo environment.
type InMemory struct {
	mu    sync.RWMutex
	codes map[string]*models.AccessCode
}

// NewInMemory creates an in-memory access-code store.
func NewInMemory() *InMemory {
	return &InMemory{codes: make(map[string]*models.AccessCode)}
}

// CreateIfAvailable atomically claims the code string. A second writer
// with the same code sees ErrAlreadyUsed and must generate a new one.
func (s *InMemory) CreateIfAvailable(_ context.Context, code *models.AccessCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[code.Code]; exists {
		return fmt.Errorf("join code already claimed: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *code
	s.codes[code.Code] = &cp
	return nil
}

// FindByCode retrieves a code row. Returns a copy; mutations persist only
// through Update.
func (s *InMemory) FindByCode(_ context.Context, code string) (*models.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.codes[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

// Update replaces a code row. Used for binding reservations and status flips.
func (s *InMemory) Update(_ context.Context, code *models.AccessCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.Code]; !ok {
		return ErrNotFound
	}
	cp := *code
	s.codes[code.Code] = &cp
	return nil
}

// Delete removes a code row. Registration compensation releases unclaimed
// reservations this way.
func (s *InMemory) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code]; !ok {
		return ErrNotFound
	}
	delete(s.codes, code)
	return nil
}

// ListBySchool returns all code rows bound to a school, newest first.
func (s *InMemory) ListBySchool(_ context.Context, schoolID id.SchoolID) ([]*models.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AccessCode
	for _, c := range s.codes {
		if c.SchoolID != nil && *c.SchoolID == schoolID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out, nil
}

// ExpireStale flips active rows whose expiry passed before the cutoff to
// expired and returns how many rows changed. The sweeper calls this with
// a grace window behind now so verification (which compares timestamps
// itself) has already been rejecting these codes for a while.
func (s *InMemory) ExpireStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.codes {
		if c.Status != models.CodeStatusActive || c.ExpiresAt == nil {
			continue
		}
		if c.ExpiresAt.Before(cutoff) {
			c.Status = models.CodeStatusExpired
			n++
		}
	}
	return n, nil
}
