// Package assignment stores the role-specific records created as the
// final provisioning step: TeacherRecord and StudentRecord rows.
//
// Error Contract:
// - Creates return ErrAlreadyUsed when the profile already has a record.
// - Lookups return ErrNotFound when no row matches.
// - DeleteByProfile returns ErrNotFound when the profile has no record
//   of either kind.
package assignment

import (
	"context"
	"fmt"
	"sync"

	"homeroom/internal/member/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

// InMemory stores assignment records in memory for tests.
type InMemory struct {
	mu       sync.RWMutex
	teachers map[id.ProfileID]*models.TeacherRecord
	students map[id.ProfileID]*models.StudentRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		teachers: make(map[id.ProfileID]*models.TeacherRecord),
		students: make(map[id.ProfileID]*models.StudentRecord),
	}
}

func (s *InMemory) CreateTeacher(_ context.Context, rec *models.TeacherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasRecord(rec.ProfileID) {
		return fmt.Errorf("profile already has an assignment: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *rec
	s.teachers[rec.ProfileID] = &cp
	return nil
}

func (s *InMemory) CreateStudent(_ context.Context, rec *models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasRecord(rec.ProfileID) {
		return fmt.Errorf("profile already has an assignment: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *rec
	s.students[rec.ProfileID] = &cp
	return nil
}

func (s *InMemory) FindTeacherByProfile(_ context.Context, profileID id.ProfileID) (*models.TeacherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.teachers[profileID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, fmt.Errorf("teacher record not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) FindStudentByProfile(_ context.Context, profileID id.ProfileID) (*models.StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.students[profileID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, fmt.Errorf("student record not found: %w", sentinel.ErrNotFound)
}

// DeleteByProfile removes the profile's assignment record, whichever kind
// it is. Compensation calls this without knowing the role.
func (s *InMemory) DeleteByProfile(_ context.Context, profileID id.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teachers[profileID]; ok {
		delete(s.teachers, profileID)
		return nil
	}
	if _, ok := s.students[profileID]; ok {
		delete(s.students, profileID)
		return nil
	}
	return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) hasRecord(profileID id.ProfileID) bool {
	if _, ok := s.teachers[profileID]; ok {
		return true
	}
	_, ok := s.students[profileID]
	return ok
}
