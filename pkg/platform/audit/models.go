package audit

import (
	"time"

	id "homeroom/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Category  EventCategory
	ActorID   id.IdentityID
	Subject   string
	SchoolID  string
	Action    string
	Outcome   string
	Reason    string
	Email     string // Contact email when available (e.g., during registration)
	RequestID string // Correlation ID from HTTP request context
}

// EventCategory buckets events for retention and alerting policy.
type EventCategory string

const (
	CategoryCompliance EventCategory = "compliance"
	CategorySecurity   EventCategory = "security"
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventSchoolRegistered     AuditEvent = "school_registered"
	EventRegistrationReversed AuditEvent = "registration_reversed"
	EventCompensationFailed   AuditEvent = "compensation_failed"
	EventSchoolDeactivated    AuditEvent = "school_deactivated"
	EventSchoolReactivated    AuditEvent = "school_reactivated"
	EventJoinCodeRegenerated  AuditEvent = "join_code_regenerated"
	EventJoinCodeExpired      AuditEvent = "join_code_expired"
	EventMemberEnrolled       AuditEvent = "member_enrolled"
	EventInviteIssued         AuditEvent = "invite_issued"
	EventInviteAccepted       AuditEvent = "invite_accepted"
	EventInviteExpired        AuditEvent = "invite_expired"
)

// Category maps an event to its retention bucket. Unknown events fall back
// to operations so a typo can never promote an event into a stricter bucket.
func (e AuditEvent) Category() EventCategory {
	switch e {
	case EventSchoolRegistered, EventRegistrationReversed, EventMemberEnrolled, EventInviteAccepted:
		return CategoryCompliance
	case EventCompensationFailed, EventJoinCodeRegenerated, EventSchoolDeactivated:
		return CategorySecurity
	default:
		return CategoryOperations
	}
}
