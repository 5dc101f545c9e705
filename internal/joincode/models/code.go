package models

import (
	"time"

	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
)

// AccessCode is a short-lived join code. Codes start life as reservations
// (no school yet) so the registration saga can claim a unique code before
// the school row exists, then get bound once creation succeeds.
type AccessCode struct {
	Code        string       `json:"code"`
	SchoolID    *id.SchoolID `json:"school_id,omitempty"`
	OwnerName   string       `json:"owner_name"`
	Status      CodeStatus   `json:"status"`
	GeneratedAt time.Time    `json:"generated_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}

// IsActive reports whether the code's status flag is active. Callers
// verifying a code must also check the expiry timestamp; a stale active
// row past its ExpiresAt is not valid.
func (c *AccessCode) IsActive() bool {
	return c.Status == CodeStatusActive
}

// VerifiableAt reports whether the code grants access at the given time.
// Both conditions must hold: status active and expiry nil-or-future. The
// status flag alone cannot be trusted because the sweeper flips stale
// rows asynchronously.
func (c *AccessCode) VerifiableAt(now time.Time) bool {
	if !c.IsActive() {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return true
}

// Bind stamps the owning school onto a reservation.
// Returns an error if the code is already bound to a different school.
func (c *AccessCode) Bind(schoolID id.SchoolID) error {
	if schoolID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "school ID required to bind a code")
	}
	if c.SchoolID != nil && *c.SchoolID != schoolID {
		return dErrors.New(dErrors.CodeInvariantViolation, "code is bound to another school")
	}
	c.SchoolID = &schoolID
	return nil
}

// Revoke retires the code after a regeneration replaced it.
// Returns an error if the code is not active.
func (c *AccessCode) Revoke() error {
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "code is not active")
	}
	c.Status = CodeStatusRevoked
	return nil
}

// Expire flips a stale active code to expired. Used by the sweeper.
// Returns an error if the code is not active.
func (c *AccessCode) Expire() error {
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "code is not active")
	}
	c.Status = CodeStatusExpired
	return nil
}

// NewReservation creates an unbound active code for a school that does not
// exist yet. OwnerName records the requested school name so orphaned
// reservations can be traced back to the registration that created them.
func NewReservation(code, ownerName string, now time.Time, expiresAt *time.Time) (*AccessCode, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "code cannot be empty")
	}
	if ownerName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner name cannot be empty")
	}
	return &AccessCode{
		Code:        code,
		OwnerName:   ownerName,
		Status:      CodeStatusActive,
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
	}, nil
}

// NewBoundCode creates an active code already attached to a school.
// Regeneration uses this; the reservation detour only exists for the
// initial registration where the school row comes later.
func NewBoundCode(code, ownerName string, schoolID id.SchoolID, now time.Time, expiresAt *time.Time) (*AccessCode, error) {
	c, err := NewReservation(code, ownerName, now, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := c.Bind(schoolID); err != nil {
		return nil, err
	}
	return c, nil
}
