package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"homeroom/internal/joincode"
	"homeroom/internal/joincode/models"
	schoolmodels "homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/audit"
	"homeroom/pkg/requestcontext"
)

// Store interfaces define persistence contracts.

type CodeStore interface {
	CreateIfAvailable(ctx context.Context, code *models.AccessCode) error
	FindByCode(ctx context.Context, code string) (*models.AccessCode, error)
	Update(ctx context.Context, code *models.AccessCode) error
	Delete(ctx context.Context, code string) error
}

// SchoolStore is the slice of the school store regeneration needs: the
// current row for the version read and the conditional pointer swap.
type SchoolStore interface {
	FindByID(ctx context.Context, schoolID id.SchoolID) (*schoolmodels.School, error)
	SwapActiveCode(ctx context.Context, schoolID id.SchoolID, code string, expectedUpdatedAt, now time.Time) error
}

// VerificationCache caches Verify outcomes. Implementations must treat
// entries as disposable; the store remains authoritative.
type VerificationCache interface {
	Get(ctx context.Context, code string) (*joincode.Verification, error)
	Put(ctx context.Context, code string, v joincode.Verification) error
	Invalidate(ctx context.Context, code string) error
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

func wrapCodeErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "join code not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "code store unavailable")
}

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

func (e *auditEmitter) emitJoinCodeRegenerated(ctx context.Context, ev models.JoinCodeRegenerated) error {
	return e.emit(ctx, audit.EventJoinCodeRegenerated, ev.SchoolID)
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
