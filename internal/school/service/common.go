package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/audit"
	"homeroom/pkg/requestcontext"
)

// Store interfaces define persistence contracts.

type SchoolStore interface {
	CreateIfNameAvailable(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	FindByID(ctx context.Context, schoolID id.SchoolID) (*models.School, error)
	FindByName(ctx context.Context, name string) (*models.School, error)
	SwapActiveCode(ctx context.Context, schoolID id.SchoolID, code string, expectedUpdatedAt, now time.Time) error
	Count(ctx context.Context) (int, error)
}

// MemberCounter reports membership counts per school, split by role.
type MemberCounter interface {
	CountBySchoolAndRole(ctx context.Context, schoolID id.SchoolID, role id.Role) (int, error)
}

// InviteCounter reports the number of pending invitations for a school.
type InviteCounter interface {
	CountPendingBySchool(ctx context.Context, schoolID id.SchoolID) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// ID validation helpers reduce repetition in service methods.

func requireSchoolID(schoolID id.SchoolID) error {
	if schoolID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "school ID required")
	}
	return nil
}

// Error wrapping helpers translate sentinel errors to domain errors.

func wrapSchoolErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "school not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "school store unavailable")
}

// auditEmitter handles audit logging and event emission.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emitSchoolDeactivated(ctx context.Context, ev models.SchoolDeactivated) error {
	return e.emit(ctx, audit.EventSchoolDeactivated, ev.SchoolID)
}

func (e *auditEmitter) emitSchoolReactivated(ctx context.Context, ev models.SchoolReactivated) error {
	return e.emit(ctx, audit.EventSchoolReactivated, ev.SchoolID)
}

func (e *auditEmitter) emit(ctx context.Context, event audit.AuditEvent, schoolID id.SchoolID) error {
	requestID := requestcontext.RequestID(ctx)
	e.logToText(ctx, string(event), "school_id", schoolID, "request_id", requestID)
	return e.emitToAudit(ctx, audit.Event{
		Category:  event.Category(),
		SchoolID:  schoolID.String(),
		Action:    string(event),
		RequestID: requestID,
	})
}

func (e *auditEmitter) logToText(ctx context.Context, event string, attributes ...any) {
	if e.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	e.logger.InfoContext(ctx, event, args...)
}

func (e *auditEmitter) emitToAudit(ctx context.Context, event audit.Event) error {
	if e.publisher == nil {
		return nil
	}
	if err := e.publisher.Emit(ctx, event); err != nil {
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "failed to emit audit event",
				"event", event.Action,
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
