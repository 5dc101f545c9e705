package models

import (
	"time"

	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
)

// ProfileRecord ties an authentication identity to a school membership.
// An identity holds at most one profile per school; the profile's Role
// decides what the member may do there.
type ProfileRecord struct {
	ID          id.ProfileID  `json:"id"`
	IdentityID  id.IdentityID `json:"identity_id"`
	SchoolID    id.SchoolID   `json:"school_id"`
	Role        id.Role       `json:"role"`
	DisplayName string        `json:"display_name"`
	CreatedAt   time.Time     `json:"created_at"`
}

func NewProfile(profileID id.ProfileID, identityID id.IdentityID, schoolID id.SchoolID, role id.Role, displayName string, now time.Time) (*ProfileRecord, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile requires an identity")
	}
	if schoolID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile requires a school")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	if len(displayName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 128 characters or less")
	}
	return &ProfileRecord{
		ID:          profileID,
		IdentityID:  identityID,
		SchoolID:    schoolID,
		Role:        role,
		DisplayName: displayName,
		CreatedAt:   now,
	}, nil
}
