package models

import (
	"time"

	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
)

// Role-specific assignment records. Provisioning creates these last, so a
// ProfileRecord without its assignment row marks a run that never
// finished; reconciliation keys on that gap.

type StudentStatus string

const StudentStatusEnrolled StudentStatus = "enrolled"

type TeacherRecord struct {
	ProfileID  id.ProfileID `json:"profile_id"`
	SchoolID   id.SchoolID  `json:"school_id"`
	Supervisor bool         `json:"supervisor"`
	CreatedAt  time.Time    `json:"created_at"`
}

type StudentRecord struct {
	ProfileID id.ProfileID  `json:"profile_id"`
	SchoolID  id.SchoolID   `json:"school_id"`
	Status    StudentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewTeacherRecord(profileID id.ProfileID, schoolID id.SchoolID, supervisor bool, now time.Time) (*TeacherRecord, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "teacher record requires a profile")
	}
	if schoolID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "teacher record requires a school")
	}
	return &TeacherRecord{
		ProfileID:  profileID,
		SchoolID:   schoolID,
		Supervisor: supervisor,
		CreatedAt:  now,
	}, nil
}

func NewStudentRecord(profileID id.ProfileID, schoolID id.SchoolID, now time.Time) (*StudentRecord, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student record requires a profile")
	}
	if schoolID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student record requires a school")
	}
	return &StudentRecord{
		ProfileID: profileID,
		SchoolID:  schoolID,
		Status:    StudentStatusEnrolled,
		CreatedAt: now,
	}, nil
}
