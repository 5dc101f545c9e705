package handler

import (
	"time"

	"homeroom/internal/school/models"
	"homeroom/internal/school/readmodels"
)

type SchoolResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    models.SchoolStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type SchoolDetailsResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Status         models.SchoolStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	TeacherCount   int                 `json:"teacher_count"`
	StudentCount   int                 `json:"student_count"`
	PendingInvites int                 `json:"pending_invites"`
}

// Response mapping functions - convert domain objects to HTTP DTOs

func toSchoolResponse(s *models.School) *SchoolResponse {
	return &SchoolResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toSchoolDetailsResponse(sd *readmodels.SchoolDetails) *SchoolDetailsResponse {
	return &SchoolDetailsResponse{
		ID:             sd.ID.String(),
		Name:           sd.Name,
		Status:         sd.Status,
		CreatedAt:      sd.CreatedAt,
		UpdatedAt:      sd.UpdatedAt,
		TeacherCount:   sd.TeacherCount,
		StudentCount:   sd.StudentCount,
		PendingInvites: sd.PendingInvites,
	}
}
