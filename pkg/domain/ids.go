// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "homeroom/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing IdentityID where SchoolID is expected.
type (
	SchoolID   uuid.UUID
	IdentityID uuid.UUID
	ProfileID  uuid.UUID
	InviteID   uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSchoolID(s string) (SchoolID, error) {
	id, err := parseUUID(s, "school ID")
	return SchoolID(id), err
}

func ParseIdentityID(s string) (IdentityID, error) {
	id, err := parseUUID(s, "identity ID")
	return IdentityID(id), err
}

func ParseProfileID(s string) (ProfileID, error) {
	id, err := parseUUID(s, "profile ID")
	return ProfileID(id), err
}

func ParseInviteID(s string) (InviteID, error) {
	id, err := parseUUID(s, "invite ID")
	return InviteID(id), err
}

// String methods - for logging and debugging.

func (id SchoolID) String() string   { return uuid.UUID(id).String() }
func (id IdentityID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) String() string  { return uuid.UUID(id).String() }
func (id InviteID) String() string   { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id SchoolID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id InviteID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
