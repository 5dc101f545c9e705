// Package invite persists InvitationCode rows keyed by the code string.
//
// Error Contract:
// - ClaimIfAvailable returns ErrAlreadyUsed when the code string is taken.
// - Lookups return ErrNotFound when no row matches.
// - MarkAccepted and Reopen return ErrVersionConflict when the row's
//   status no longer matches the transition's precondition.
// - Infrastructure failures are returned wrapped with context.
package invite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homeroom/internal/invitation/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

// InMemory stores invitations in memory for tests and the demo environment.
type InMemory struct {
	mu      sync.RWMutex
	invites map[string]*models.InvitationCode
}

// NewInMemory creates an in-memory invitation store.
func NewInMemory() *InMemory {
	return &InMemory{invites: make(map[string]*models.InvitationCode)}
}

// ClaimIfAvailable atomically claims the code string. A second writer
// with the same code sees ErrAlreadyUsed and must generate a new one.
func (s *InMemory) ClaimIfAvailable(_ context.Context, invite *models.InvitationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invites[invite.Code]; exists {
		return fmt.Errorf("invitation code already claimed: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *invite
	s.invites[invite.Code] = &cp
	return nil
}

// FindByCode retrieves an invitation. Returns a copy; mutations persist
// only through the conditional transitions.
func (s *InMemory) FindByCode(_ context.Context, code string) (*models.InvitationCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inv, ok := s.invites[code]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
}

// MarkAccepted flips pending -> accepted in one conditional step. The
// status check and the write happen under the same lock, so of two
// concurrent acceptors exactly one wins; the loser sees
// ErrVersionConflict.
func (s *InMemory) MarkAccepted(_ context.Context, code string, identityID id.IdentityID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[code]
	if !ok {
		return fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
	}
	if inv.Status != models.InviteStatusPending {
		return fmt.Errorf("invitation is %s: %w", inv.Status, sentinel.ErrVersionConflict)
	}
	inv.Status = models.InviteStatusAccepted
	inv.AcceptedBy = &identityID
	inv.AcceptedAt = &now
	return nil
}

// Reopen reverts accepted -> pending. Acceptance compensation calls this
// when the member rows could not be created after the flip.
func (s *InMemory) Reopen(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[code]
	if !ok {
		return fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
	}
	if inv.Status != models.InviteStatusAccepted {
		return fmt.Errorf("invitation is %s: %w", inv.Status, sentinel.ErrVersionConflict)
	}
	inv.Status = models.InviteStatusPending
	inv.AcceptedBy = nil
	inv.AcceptedAt = nil
	return nil
}

// CountPendingBySchool reports how many invitations are still open for a
// school. Feeds the school details read model.
func (s *InMemory) CountPendingBySchool(_ context.Context, schoolID id.SchoolID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, inv := range s.invites {
		if inv.SchoolID == schoolID && inv.Status == models.InviteStatusPending {
			count++
		}
	}
	return count, nil
}

// ExpireStale flips pending rows whose expiry passed before the cutoff to
// expired and returns how many rows changed. The sweeper calls this;
// acceptance compares timestamps itself, so these rows were already being
// rejected before the flip.
func (s *InMemory) ExpireStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, inv := range s.invites {
		if inv.Status != models.InviteStatusPending {
			continue
		}
		if inv.ExpiresAt.Before(cutoff) {
			inv.Status = models.InviteStatusExpired
			n++
		}
	}
	return n, nil
}
