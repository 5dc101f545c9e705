package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"homeroom/internal/platform/kafka/consumer"
	id "homeroom/pkg/domain"
	audit "homeroom/pkg/platform/audit"
	"homeroom/pkg/platform/audit/outbox"

	"github.com/google/uuid"
)

// Store persists consumed events idempotently. Satisfied by the postgres
// audit store.
type Store interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Handler processes audit events from Kafka and writes them to the durable
// audit store. It implements consumer.Handler for use with the Kafka consumer.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a new audit event consumer handler.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Handle processes a single Kafka message containing an audit event.
// It performs an idempotent insert using the message key as the event ID.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Error("failed to parse event ID from message key",
			"key", string(msg.Key),
			"error", err,
		)
		// Return nil to commit the offset; malformed messages must not block processing.
		return nil
	}

	var payload outbox.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("failed to unmarshal audit payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	event := audit.Event{
		Category:  audit.EventCategory(payload.Category),
		Subject:   payload.Subject,
		SchoolID:  payload.SchoolID,
		Action:    payload.Action,
		Outcome:   payload.Outcome,
		Reason:    payload.Reason,
		Email:     payload.Email,
		RequestID: payload.RequestID,
	}

	if payload.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			event.Timestamp = ts
		}
	}

	if payload.ActorID != "" {
		if aid, err := uuid.Parse(payload.ActorID); err == nil {
			event.ActorID = id.IdentityID(aid)
		}
	}

	if event.Category == "" {
		event.Category = audit.CategoryOperations
	}

	h.logger.Debug("processing audit event",
		"event_id", eventID,
		"action", event.Action,
		"school_id", event.SchoolID,
	)

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.Error("failed to store audit event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		// Return error to prevent commit; the message will be redelivered.
		return fmt.Errorf("store audit event: %w", err)
	}

	return nil
}
