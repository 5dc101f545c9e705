package service

import (
	"context"
	"log/slog"

	membermodels "homeroom/internal/member/models"
	schoolmodels "homeroom/internal/school/models"
	id "homeroom/pkg/domain"
	"homeroom/pkg/platform/audit"
	"homeroom/pkg/requestcontext"
)

// Collaborator contracts. The saga consumes narrow slices of the code
// service and the stores so tests can fail each step independently.

// CodeLifecycle is the slice of the join-code service registration needs.
type CodeLifecycle interface {
	IssueInitial(ctx context.Context, schoolName string) (string, error)
	ReleaseReservation(ctx context.Context, code string) error
	Bind(ctx context.Context, code string, schoolID id.SchoolID) error
}

type SchoolStore interface {
	CreateIfNameAvailable(ctx context.Context, school *schoolmodels.School) error
	Delete(ctx context.Context, schoolID id.SchoolID) error
}

type ProfileStore interface {
	Create(ctx context.Context, profile *membermodels.ProfileRecord) error
	Delete(ctx context.Context, profileID id.ProfileID) error
}

type AssignmentStore interface {
	CreateTeacher(ctx context.Context, rec *membermodels.TeacherRecord) error
	DeleteByProfile(ctx context.Context, profileID id.ProfileID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// auditEmitter records registration outcomes. Audit is observational
// here, not transactional: by the time an event fires the provisioning
// outcome is already settled, so a sink failure is logged and dropped.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emitSchoolRegistered(ctx context.Context, schoolID id.SchoolID, email string) {
	e.emit(ctx, audit.Event{
		Category: audit.EventSchoolRegistered.Category(),
		SchoolID: schoolID.String(),
		Action:   string(audit.EventSchoolRegistered),
		Outcome:  "success",
		Email:    email,
	})
}

func (e *auditEmitter) emitRegistrationReversed(ctx context.Context, schoolName, email string, cause error) {
	e.emit(ctx, audit.Event{
		Category: audit.EventRegistrationReversed.Category(),
		Subject:  schoolName,
		Action:   string(audit.EventRegistrationReversed),
		Outcome:  "failure",
		Reason:   cause.Error(),
		Email:    email,
	})
}

func (e *auditEmitter) emitCompensationFailed(ctx context.Context, step string, cause error) {
	e.emit(ctx, audit.Event{
		Category: audit.EventCompensationFailed.Category(),
		Subject:  step,
		Action:   string(audit.EventCompensationFailed),
		Outcome:  "failure",
		Reason:   cause.Error(),
	})
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	e.logToText(ctx, event.Action,
		"school_id", event.SchoolID,
		"subject", event.Subject,
		"outcome", event.Outcome,
		"request_id", event.RequestID,
	)
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", event.Action,
			"error", err,
		)
	}
}

func (e *auditEmitter) logToText(ctx context.Context, event string, attributes ...any) {
	if e.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	e.logger.InfoContext(ctx, event, args...)
}
