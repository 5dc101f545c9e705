package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists outbox entries. Implementations must be safe for
// concurrent use: the writer appends while the shipper drains.
type Store interface {
	// Append stages an entry. Callers run it inside the same
	// transaction as the business write so the entry and the state
	// change commit or roll back together.
	Append(ctx context.Context, entry *Entry) error

	// FetchUnprocessed returns up to limit unshipped entries, oldest
	// first. Implementations lock the returned rows (FOR UPDATE SKIP
	// LOCKED) so concurrent shippers never pick the same batch.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)

	// MarkProcessed records that the broker acknowledged the entry.
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	// CountPending reports the shipping backlog for metrics.
	CountPending(ctx context.Context) (int64, error)

	// DeleteProcessedBefore prunes shipped entries older than the
	// cutoff and returns how many were removed.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
