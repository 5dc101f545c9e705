package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	invmodels "homeroom/internal/invitation/models"
	membermodels "homeroom/internal/member/models"
	schoolmodels "homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/audit"
	"homeroom/pkg/requestcontext"
)

// Store interfaces define persistence contracts. The service consumes
// narrow slices so tests can fail each collaborator independently.

type InviteStore interface {
	ClaimIfAvailable(ctx context.Context, invite *invmodels.InvitationCode) error
	FindByCode(ctx context.Context, code string) (*invmodels.InvitationCode, error)
	MarkAccepted(ctx context.Context, code string, identityID id.IdentityID, now time.Time) error
	Reopen(ctx context.Context, code string) error
}

// SchoolStore is the slice of the school store issuance needs: the row
// for the active check.
type SchoolStore interface {
	FindByID(ctx context.Context, schoolID id.SchoolID) (*schoolmodels.School, error)
}

type ProfileStore interface {
	Create(ctx context.Context, profile *membermodels.ProfileRecord) error
	Delete(ctx context.Context, profileID id.ProfileID) error
	FindByIdentityAndSchool(ctx context.Context, identityID id.IdentityID, schoolID id.SchoolID) (*membermodels.ProfileRecord, error)
}

// AssignmentStore covers both issuance authorization (the teacher record
// is the authority, not caller-supplied role claims) and the acceptor's
// new role record.
type AssignmentStore interface {
	CreateTeacher(ctx context.Context, rec *membermodels.TeacherRecord) error
	CreateStudent(ctx context.Context, rec *membermodels.StudentRecord) error
	FindTeacherByProfile(ctx context.Context, profileID id.ProfileID) (*membermodels.TeacherRecord, error)
	DeleteByProfile(ctx context.Context, profileID id.ProfileID) error
}

// LinkSigner issues and validates the signed tokens carried by emailed
// invitation links.
type LinkSigner interface {
	Sign(inv *invmodels.InvitationCode) (string, error)
	BuildURL(token string) string
	Parse(token string, now time.Time) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Error wrapping helpers translate sentinel errors to domain errors.

func wrapInviteErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeInvalidOrExpiredCode, "invitation is invalid or expired")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "invitation store unavailable")
}

func wrapSchoolErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "school not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "school store unavailable")
}

// auditEmitter records invitation outcomes. Audit is observational here:
// by the time an event fires the outcome is settled, so a sink failure is
// logged and dropped.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emitInviteIssued(ctx context.Context, ev invmodels.InviteIssued) {
	e.emit(ctx, audit.Event{
		Category: audit.EventInviteIssued.Category(),
		ActorID:  ev.IssuedBy,
		SchoolID: ev.SchoolID.String(),
		Action:   string(audit.EventInviteIssued),
		Outcome:  "success",
		Subject:  string(ev.Mode),
		Reason:   ev.Role.String(),
	})
}

func (e *auditEmitter) emitInviteAccepted(ctx context.Context, ev invmodels.InviteAccepted) {
	e.emit(ctx, audit.Event{
		Category: audit.EventInviteAccepted.Category(),
		ActorID:  ev.AcceptedBy,
		SchoolID: ev.SchoolID.String(),
		Action:   string(audit.EventInviteAccepted),
		Outcome:  "success",
		Reason:   ev.Role.String(),
	})
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	e.logToText(ctx, event.Action,
		"school_id", event.SchoolID,
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
