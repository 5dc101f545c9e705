package models

import (
	"time"

	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
)

// InviteTTL is how long an invitation stays acceptable after issuance.
const InviteTTL = 7 * 24 * time.Hour

// InvitationCode is a narrow grant into an existing school: either a
// single-recipient emailed invitation or an open shareable code. Unlike
// an AccessCode, any number of invitations may be pending per school at
// once; each row carries its own expiry and acceptance state.
type InvitationCode struct {
	ID         id.InviteID    `json:"id"`
	Code       string         `json:"code"`
	SchoolID   id.SchoolID    `json:"school_id"`
	IssuedBy   id.IdentityID  `json:"issued_by"`
	Role       id.Role        `json:"role"`
	Email      *string        `json:"email,omitempty"`
	Status     InviteStatus   `json:"status"`
	IssuedAt   time.Time      `json:"issued_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	AcceptedBy *id.IdentityID `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time     `json:"accepted_at,omitempty"`
}

// Mode derives the invitation's delivery mode from its email binding.
func (i *InvitationCode) Mode() InviteMode {
	if i.Email != nil {
		return InviteModeEmail
	}
	return InviteModeOpen
}

// IsPending reports whether the status flag is pending. Callers deciding
// acceptability must also compare ExpiresAt; the sweeper flips stale rows
// asynchronously, so the flag alone cannot be trusted.
func (i *InvitationCode) IsPending() bool {
	return i.Status == InviteStatusPending
}

// AcceptableAt reports whether the invitation can be accepted at the
// given time: status pending and expiry in the future.
func (i *InvitationCode) AcceptableAt(now time.Time) bool {
	return i.IsPending() && now.Before(i.ExpiresAt)
}

// Accept consumes the invitation. Returns already_accepted when another
// acceptor got there first and invalid_or_expired_code when the window
// has closed.
func (i *InvitationCode) Accept(identityID id.IdentityID, now time.Time) error {
	if i.Status == InviteStatusAccepted {
		return dErrors.New(dErrors.CodeAlreadyAccepted, "invitation was already accepted")
	}
	if !i.AcceptableAt(now) {
		return dErrors.New(dErrors.CodeInvalidOrExpiredCode, "invitation is expired or no longer valid")
	}
	if identityID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "accepting identity required")
	}
	i.Status = InviteStatusAccepted
	i.AcceptedBy = &identityID
	i.AcceptedAt = &now
	return nil
}

// Expire flips a stale pending invitation to expired. Used by the sweeper.
func (i *InvitationCode) Expire() error {
	if !i.IsPending() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invitation is not pending")
	}
	i.Status = InviteStatusExpired
	return nil
}

// NewInvitation creates a pending invitation. Email is nil for open
// invitations; role must be grantable (administrative roles are only
// ever created by registration itself).
func NewInvitation(inviteID id.InviteID, code string, schoolID id.SchoolID, issuedBy id.IdentityID, role id.Role, email *string, now time.Time) (*InvitationCode, error) {
	if inviteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invitation requires an ID")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "code cannot be empty")
	}
	if schoolID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invitation requires a school")
	}
	if issuedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invitation requires an issuer")
	}
	if !role.Grantable() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role cannot be granted by invitation")
	}
	if email != nil && *email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bound email cannot be empty")
	}
	return &InvitationCode{
		ID:        inviteID,
		Code:      code,
		SchoolID:  schoolID,
		IssuedBy:  issuedBy,
		Role:      role,
		Email:     email,
		Status:    InviteStatusPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(InviteTTL),
	}, nil
}
