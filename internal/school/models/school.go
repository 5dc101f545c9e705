package models

import (
	"time"

	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
)

type School struct {
	ID         id.SchoolID  `json:"id"`
	Name       string       `json:"name"`
	ActiveCode string       `json:"active_code"`
	Status     SchoolStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (s *School) IsActive() bool {
	return s.Status == SchoolStatusActive
}

// Deactivate transitions the school to inactive status.
// Updates the timestamp to track when the transition occurred.
// Returns an error if the school is already inactive.
func (s *School) Deactivate(now time.Time) error {
	if !s.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "school is already inactive")
	}
	s.Status = SchoolStatusInactive
	s.UpdatedAt = now
	return nil
}

// Reactivate transitions the school to active status.
// Updates the timestamp to track when the transition occurred.
// Returns an error if the school is already active.
func (s *School) Reactivate(now time.Time) error {
	if s.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "school is already active")
	}
	s.Status = SchoolStatusActive
	s.UpdatedAt = now
	return nil
}

// SwapCode points the school at a freshly issued join code.
// The caller persists the change with a conditional write keyed on the
// previous UpdatedAt, so concurrent regenerations cannot both win.
func (s *School) SwapCode(code string, now time.Time) error {
	if code == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "join code cannot be empty")
	}
	s.ActiveCode = code
	s.UpdatedAt = now
	return nil
}

func NewSchool(schoolID id.SchoolID, name, code string, now time.Time) (*School, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "school name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "school name must be 128 characters or less")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "school requires a join code")
	}
	return &School{
		ID:         schoolID,
		Name:       name,
		ActiveCode: code,
		Status:     SchoolStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

