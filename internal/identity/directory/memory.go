// Package directory contains the built-in identity.Gateway adapters: an
// in-memory directory for tests and development, and a Postgres directory
// for standalone deployments that run without an external provider.
package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"homeroom/internal/identity"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/secrets"
)

type record struct {
	identityID id.IdentityID
	address    string
	secretHash string
	metadata   map[string]string
	createdAt  time.Time
}

// SentLink records one verification-link request, for test assertions.
type SentLink struct {
	IdentityID     id.IdentityID
	RedirectTarget string
}

// InMemory implements identity.Gateway with map storage. Secrets are
// bcrypt-hashed even here so tests exercise the same code path as the
// Postgres directory.
type InMemory struct {
	mu        sync.RWMutex
	byID      map[id.IdentityID]*record
	byAddress map[string]id.IdentityID
	links     []SentLink
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:      make(map[id.IdentityID]*record),
		byAddress: make(map[string]id.IdentityID),
	}
}

func (d *InMemory) CreateIdentity(_ context.Context, newIdentity identity.NewIdentity) (id.IdentityID, error) {
	hash, err := secrets.Hash(newIdentity.Secret)
	if err != nil {
		return id.IdentityID{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byAddress[newIdentity.Address]; ok {
		return id.IdentityID{}, fmt.Errorf("address already registered: %w", sentinel.ErrAlreadyUsed)
	}

	identityID := id.IdentityID(uuid.New())
	d.byID[identityID] = &record{
		identityID: identityID,
		address:    newIdentity.Address,
		secretHash: hash,
		metadata:   newIdentity.Metadata,
		createdAt:  time.Now().UTC(),
	}
	d.byAddress[newIdentity.Address] = identityID
	return identityID, nil
}

func (d *InMemory) FindByAddress(_ context.Context, address string) (id.IdentityID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if identityID, ok := d.byAddress[address]; ok {
		return identityID, nil
	}
	return id.IdentityID{}, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

func (d *InMemory) DeleteIdentity(_ context.Context, identityID id.IdentityID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[identityID]
	if !ok {
		return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	delete(d.byID, identityID)
	delete(d.byAddress, rec.address)
	return nil
}

func (d *InMemory) SendVerificationLink(_ context.Context, identityID id.IdentityID, redirectTarget string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[identityID]; !ok {
		return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	d.links = append(d.links, SentLink{IdentityID: identityID, RedirectTarget: redirectTarget})
	return nil
}

// SentLinks returns every verification link requested so far.
func (d *InMemory) SentLinks() []SentLink {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]SentLink, len(d.links))
	copy(out, d.links)
	return out
}

var _ identity.Gateway = (*InMemory)(nil)
