// Package readmodels contains query-optimized data structures for read operations.
// These are separate from domain models to allow independent evolution
// and optimization for display/reporting use cases.
package readmodels

import (
	"time"

	"homeroom/internal/school/models"
	id "homeroom/pkg/domain"
)

// SchoolDetails aggregates school metadata with membership counts for
// admin dashboards. This is a read model optimized for display - not a
// domain aggregate.
type SchoolDetails struct {
	ID             id.SchoolID
	Name           string
	Status         models.SchoolStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	TeacherCount   int
	StudentCount   int
	PendingInvites int
}
