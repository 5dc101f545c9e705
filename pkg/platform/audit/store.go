package audit

import "context"

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	// Append records an event. Append-only; events are never updated.
	Append(ctx context.Context, event Event) error

	// ListBySchool returns events scoped to one school, newest first.
	ListBySchool(ctx context.Context, schoolID string) ([]Event, error)

	// ListRecent returns the N most recent events across all schools.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
