package models

import id "homeroom/pkg/domain"

// Domain events capture what happened in the invitation lifecycle.
// These are pure data structures with no behavior - the application layer
// is responsible for publishing them to the audit system.

// InviteIssued is recorded when an invitation is created. The code is
// deliberately not carried; invitation codes are bearer credentials and
// must not end up in the audit trail.
type InviteIssued struct {
	SchoolID id.SchoolID
	IssuedBy id.IdentityID
	Mode     InviteMode
	Role     id.Role
}

// InviteAccepted is recorded when an invitation is consumed and a new
// member joins the school.
type InviteAccepted struct {
	SchoolID   id.SchoolID
	AcceptedBy id.IdentityID
	Role       id.Role
}
