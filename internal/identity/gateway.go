// Package identity abstracts the authentication provider. Registration
// and invitation flows create, look up, and delete identities through the
// Gateway interface; everything else about authentication (credential
// verification, sessions, address confirmation) belongs to the provider
// behind it.
package identity

import (
	"context"

	id "homeroom/pkg/domain"
)

// NewIdentity is the payload for creating an authentication identity.
// Metadata travels to the provider verbatim; registration uses it to tag
// the identity with its school and join code.
type NewIdentity struct {
	Address  string
	Secret   string
	Metadata map[string]string
}

// Gateway is the provider-facing contract.
//
// Error Contract:
// - CreateIdentity returns sentinel.ErrAlreadyUsed when the address is taken.
// - FindByAddress returns sentinel.ErrNotFound when no identity exists.
// - Infrastructure failures are returned wrapped with context.
type Gateway interface {
	CreateIdentity(ctx context.Context, newIdentity NewIdentity) (id.IdentityID, error)
	FindByAddress(ctx context.Context, address string) (id.IdentityID, error)
	DeleteIdentity(ctx context.Context, identityID id.IdentityID) error

	// SendVerificationLink asks the provider to mail an address-confirmation
	// link. Callers treat it as best-effort.
	SendVerificationLink(ctx context.Context, identityID id.IdentityID, redirectTarget string) error
}
