package service

import (
	"context"
	"strings"

	schoolmetrics "homeroom/internal/school/metrics"
	"homeroom/internal/school/models"
	"homeroom/internal/school/readmodels"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/requestcontext"
)

// SchoolService orchestrates school lifecycle management. School creation
// itself happens through the registration saga; this service owns reads and
// status transitions for existing schools.
type SchoolService struct {
	schools      SchoolStore
	members      MemberCounter
	invites      InviteCounter
	auditEmitter *auditEmitter
	metrics      *schoolmetrics.Metrics
	tx           StoreTx
}

func NewSchoolService(schools SchoolStore, members MemberCounter, invites InviteCounter, opts ...Option) *SchoolService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	return &SchoolService{
		schools:      schools,
		members:      members,
		invites:      invites,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
		tx:           tx,
	}
}

func (s *SchoolService) GetSchool(ctx context.Context, schoolID id.SchoolID) (*models.School, error) {
	if err := requireSchoolID(schoolID); err != nil {
		return nil, err
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, wrapSchoolErr(err)
	}
	return school, nil
}

// GetSchoolByName retrieves a school by name (case-insensitive).
func (s *SchoolService) GetSchoolByName(ctx context.Context, name string) (*models.School, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "school name is required")
	}
	school, err := s.schools.FindByName(ctx, name)
	if err != nil {
		return nil, wrapSchoolErr(err)
	}
	return school, nil
}

// GetSchoolDetails fetches school metadata with membership counts.
func (s *SchoolService) GetSchoolDetails(ctx context.Context, schoolID id.SchoolID) (*readmodels.SchoolDetails, error) {
	if err := requireSchoolID(schoolID); err != nil {
		return nil, err
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, wrapSchoolErr(err)
	}

	teacherCount := 0
	studentCount := 0
	if s.members != nil {
		if teacherCount, err = s.members.CountBySchoolAndRole(ctx, schoolID, id.RoleTeacher); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to count teachers")
		}
		if studentCount, err = s.members.CountBySchoolAndRole(ctx, schoolID, id.RoleStudent); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to count students")
		}
	}

	pendingInvites := 0
	if s.invites != nil {
		if pendingInvites, err = s.invites.CountPendingBySchool(ctx, schoolID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to count pending invites")
		}
	}

	return &readmodels.SchoolDetails{
		ID:             school.ID,
		Name:           school.Name,
		Status:         school.Status,
		CreatedAt:      school.CreatedAt,
		UpdatedAt:      school.UpdatedAt,
		TeacherCount:   teacherCount,
		StudentCount:   studentCount,
		PendingInvites: pendingInvites,
	}, nil
}

// DeactivateSchool transitions a school to inactive status.
// Returns the updated school or an error if the school is not found or already inactive.
func (s *SchoolService) DeactivateSchool(ctx context.Context, schoolID id.SchoolID) (*models.School, error) {
	if err := requireSchoolID(schoolID); err != nil {
		return nil, err
	}
	var school *models.School
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sc, err := s.schools.FindByID(txCtx, schoolID)
		if err != nil {
			return wrapSchoolErr(err)
		}

		if err := sc.Deactivate(requestcontext.Now(txCtx)); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeConflict, "school is already inactive")
			}
			return err
		}

		if err := s.schools.Update(txCtx, sc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update school")
		}

		if err := s.auditEmitter.emitSchoolDeactivated(txCtx, models.SchoolDeactivated{SchoolID: sc.ID}); err != nil {
			return err
		}

		school = sc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.incrementStatusChanged()
	return school, nil
}

// ReactivateSchool transitions a school to active status.
// Returns the updated school or an error if the school is not found or already active.
func (s *SchoolService) ReactivateSchool(ctx context.Context, schoolID id.SchoolID) (*models.School, error) {
	if err := requireSchoolID(schoolID); err != nil {
		return nil, err
	}
	var school *models.School
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sc, err := s.schools.FindByID(txCtx, schoolID)
		if err != nil {
			return wrapSchoolErr(err)
		}

		if err := sc.Reactivate(requestcontext.Now(txCtx)); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeConflict, "school is already active")
			}
			return err
		}

		if err := s.schools.Update(txCtx, sc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update school")
		}

		if err := s.auditEmitter.emitSchoolReactivated(txCtx, models.SchoolReactivated{SchoolID: sc.ID}); err != nil {
			return err
		}

		school = sc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.incrementStatusChanged()
	return school, nil
}

func (s *SchoolService) incrementStatusChanged() {
	if s.metrics != nil {
		s.metrics.IncrementStatusChanged()
	}
}
