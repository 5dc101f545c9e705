package models

import id "homeroom/pkg/domain"

// Domain events capture what happened in the school domain.
// These are pure data structures with no behavior - the application layer
// is responsible for publishing them to the audit system.

// SchoolDeactivated is emitted when a school is suspended.
type SchoolDeactivated struct {
	SchoolID id.SchoolID
}

// SchoolReactivated is emitted when a suspended school is restored.
type SchoolReactivated struct {
	SchoolID id.SchoolID
}
