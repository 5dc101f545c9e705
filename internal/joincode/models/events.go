package models

import id "homeroom/pkg/domain"

// Domain events capture what happened in the join-code lifecycle.
// These are pure data structures with no behavior - the application layer
// is responsible for publishing them to the audit system.

// JoinCodeRegenerated is recorded when a school's active code is replaced.
// The revoked code is deliberately not carried; codes are bearer
// credentials and must not end up in the audit trail.
type JoinCodeRegenerated struct {
	SchoolID id.SchoolID
}
