package postgres

import (
	"context"
	"database/sql"
	"fmt"

	id "homeroom/pkg/domain"
	audit "homeroom/pkg/platform/audit"

	"github.com/google/uuid"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit event into the audit_events table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	return s.AppendWithID(ctx, uuid.New(), event)
}

// AppendWithID inserts an audit event with a specific ID (for idempotent inserts).
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, actor_id, subject, school_id,
			action, outcome, reason, email, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	var actorID *uuid.UUID
	if !event.ActorID.IsNil() {
		aid := uuid.UUID(event.ActorID)
		actorID = &aid
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		actorID,
		event.Subject,
		event.SchoolID,
		event.Action,
		event.Outcome,
		event.Reason,
		event.Email,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySchool returns events for a specific school, newest first.
func (s *Store) ListBySchool(ctx context.Context, schoolID string) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, actor_id, subject, school_id,
			   action, outcome, reason, email, request_id
		FROM audit_events
		WHERE school_id = $1
		ORDER BY occurred_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, schoolID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, actor_id, subject, school_id,
			   action, outcome, reason, email, request_id
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// scanEvents scans multiple rows into an audit.Event slice.
func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category        string
			event           audit.Event
			actorIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&actorIDNullable,
			&event.Subject,
			&event.SchoolID,
			&event.Action,
			&event.Outcome,
			&event.Reason,
			&event.Email,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if actorIDNullable != nil {
			event.ActorID = id.IdentityID(*actorIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
