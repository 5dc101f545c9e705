package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dErrors "homeroom/pkg/domain-errors"
	audit "homeroom/pkg/platform/audit"

	"github.com/google/uuid"
)

// Writer adapts an outbox store to the audit.Store interface so the audit
// publisher can route events through the transactional outbox. When the
// caller's context carries an open transaction, the entry commits atomically
// with the business write.
//
// The outbox is write-only: reads are served by the durable audit store that
// the Kafka consumer populates.
type Writer struct {
	store Store
}

// NewWriter wraps an outbox store as an audit event sink.
func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Payload is the JSON wire form of an audit event in an outbox entry.
// The Kafka consumer depends on this exact shape when replaying entries.
type Payload struct {
	ID        string
	Category  string
	Timestamp string
	ActorID   string
	Subject   string
	SchoolID  string
	Action    string
	Outcome   string
	Reason    string
	Email     string
	RequestID string
}

// Append encodes the event and stores it as a pending outbox entry.
func (w *Writer) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	actorID := ""
	if !event.ActorID.IsNil() {
		actorID = event.ActorID.String()
	}

	body, err := json.Marshal(Payload{
		ID:        eventID.String(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		ActorID:   actorID,
		Subject:   event.Subject,
		SchoolID:  event.SchoolID,
		Action:    event.Action,
		Outcome:   event.Outcome,
		Reason:    event.Reason,
		Email:     event.Email,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := NewEntry(aggregateTypeFor(event), aggregateIDFor(event), event.Action, body)
	entry.ID = eventID
	entry.CreatedAt = event.Timestamp

	return w.store.Append(ctx, entry)
}

// ListBySchool is not supported on the outbox; query the audit store instead.
func (w *Writer) ListBySchool(_ context.Context, _ string) ([]audit.Event, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "outbox is write-only; audit reads are served by the audit store")
}

// ListRecent is not supported on the outbox; query the audit store instead.
func (w *Writer) ListRecent(_ context.Context, _ int) ([]audit.Event, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "outbox is write-only; audit reads are served by the audit store")
}

func aggregateTypeFor(event audit.Event) string {
	if event.SchoolID != "" {
		return "school"
	}
	return "system"
}

func aggregateIDFor(event audit.Event) string {
	if event.SchoolID != "" {
		return event.SchoolID
	}
	return event.Subject
}
