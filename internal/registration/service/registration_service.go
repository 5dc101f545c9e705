// Package service orchestrates school registration. One call provisions
// the school, its initial join code, and the founding administrator's
// identity, profile, and supervisor record, or none of them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"homeroom/internal/identity"
	membermodels "homeroom/internal/member/models"
	"homeroom/internal/registration"
	"homeroom/internal/registration/tracer"
	schoolmodels "homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/requestcontext"
)

// Step names show up in span names, metrics labels, and audit trails.
const (
	stepCheckIdentity    = "check_identity"
	stepReserveCode      = "reserve_code"
	stepCreateSchool     = "create_school"
	stepCreateIdentity   = "create_identity"
	stepCreateProfile    = "create_profile"
	stepCreateRoleRecord = "create_role_record"
)

// SchoolRegistration describes a signup: the school to create and its
// founding administrator.
type SchoolRegistration struct {
	SchoolName       string
	AdminEmail       string
	AdminSecret      string
	AdminDisplayName string
}

// ProvisionedSchool is returned once every provisioning step has
// committed. The code appears here exactly once; it is never readable
// again through the API.
type ProvisionedSchool struct {
	SchoolID   id.SchoolID
	Code       string
	IdentityID id.IdentityID
}

// RegistrationService runs the registration saga over the code service,
// the school and member stores, and the identity provider.
type RegistrationService struct {
	codes        CodeLifecycle
	schools      SchoolStore
	profiles     ProfileStore
	assignments  AssignmentStore
	gateway      identity.Gateway
	saga         *registration.Saga
	tracer       tracer.Tracer
	auditEmitter *auditEmitter
	logger       *slog.Logger
	redirect     string
}

func New(codes CodeLifecycle, schools SchoolStore, profiles ProfileStore, assignments AssignmentStore, gateway identity.Gateway, opts ...Option) *RegistrationService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tracer == nil {
		cfg.tracer = tracer.NewNoop()
	}

	s := &RegistrationService{
		codes:        codes,
		schools:      schools,
		profiles:     profiles,
		assignments:  assignments,
		gateway:      gateway,
		tracer:       cfg.tracer,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		redirect:     cfg.verificationRedirect,
	}
	s.saga = registration.New(
		registration.WithLogger(cfg.logger),
		registration.WithTracer(cfg.tracer),
		registration.WithMetrics(cfg.metrics),
		registration.WithCompensationFailureHandler(s.auditCompensationFailure),
	)
	return s
}

// sagaState carries identifiers across steps. Each closure fills in what
// it created so later steps and compensations can reference it.
type sagaState struct {
	code       string
	schoolID   id.SchoolID
	identityID id.IdentityID
	profileID  id.ProfileID
}

// RegisterSchool provisions a school end to end. Steps run in a fixed
// order; the first failure unwinds everything already created and its
// error reaches the caller unchanged. Partial success is never reported
// as success.
func (s *RegistrationService) RegisterSchool(ctx context.Context, reg SchoolRegistration) (*ProvisionedSchool, error) {
	reg.SchoolName = strings.TrimSpace(reg.SchoolName)
	reg.AdminEmail = normalizeAddress(reg.AdminEmail)
	if reg.SchoolName == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "school name is required")
	}
	if reg.AdminEmail == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin email is required")
	}
	if reg.AdminSecret == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin secret is required")
	}
	displayName := resolveDisplayName(reg.AdminDisplayName, reg.AdminEmail)

	ctx, span := s.tracer.Start(ctx, tracer.SpanSaga,
		tracer.String(tracer.AttrSchoolName, reg.SchoolName),
		tracer.String(tracer.AttrAddressHash, tracer.HashAddress(reg.AdminEmail)),
	)

	state := &sagaState{}
	err := s.saga.Execute(ctx, s.provisioningSteps(reg, displayName, state))
	span.End(err)
	if err != nil {
		// A reversal presumes something was provisioned; a rejection at
		// the identity check created nothing worth auditing as one.
		if state.code != "" {
			s.auditEmitter.emitRegistrationReversed(ctx, reg.SchoolName, reg.AdminEmail, err)
		}
		return nil, err
	}

	result := &ProvisionedSchool{
		SchoolID:   state.schoolID,
		Code:       state.code,
		IdentityID: state.identityID,
	}
	s.auditEmitter.emitSchoolRegistered(ctx, result.SchoolID, reg.AdminEmail)
	s.sendVerificationLink(ctx, state.identityID)
	return result, nil
}

// provisioningSteps builds the ordered step list for one registration.
// A step that fails must leave nothing behind; the runner only ever
// compensates steps that completed.
func (s *RegistrationService) provisioningSteps(reg SchoolRegistration, displayName string, st *sagaState) []registration.Step {
	return []registration.Step{
		{
			// Advisory only. Two concurrent signups for one address can
			// both pass; the provider's uniqueness constraint at
			// create_identity is the authority.
			Name: stepCheckIdentity,
			Run: func(ctx context.Context) error {
				_, err := s.gateway.FindByAddress(ctx, reg.AdminEmail)
				switch {
				case err == nil:
					return dErrors.New(dErrors.CodeDuplicateIdentity, "address is already registered")
				case errors.Is(err, sentinel.ErrNotFound):
					return nil
				default:
					return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider unavailable")
				}
			},
		},
		{
			Name: stepReserveCode,
			Run: func(ctx context.Context) error {
				code, err := s.codes.IssueInitial(ctx, reg.SchoolName)
				if err != nil {
					return err
				}
				st.code = code
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.codes.ReleaseReservation(ctx, st.code)
			},
		},
		{
			Name: stepCreateSchool,
			Run: func(ctx context.Context) error {
				school, err := schoolmodels.NewSchool(id.SchoolID(uuid.New()), reg.SchoolName, st.code, requestcontext.Now(ctx))
				if err != nil {
					return err
				}
				if err := s.schools.CreateIfNameAvailable(ctx, school); err != nil {
					if errors.Is(err, sentinel.ErrAlreadyUsed) {
						return dErrors.New(dErrors.CodeConflict, "school name is already taken")
					}
					return dErrors.Wrap(err, dErrors.CodeUnavailable, "school store unavailable")
				}
				if err := s.codes.Bind(ctx, st.code, school.ID); err != nil {
					// The row is this step's own partial work; take it
					// back out before reporting failure.
					if delErr := s.schools.Delete(ctx, school.ID); delErr != nil && s.logger != nil {
						s.logger.ErrorContext(ctx, "school row left behind after failed bind",
							"school_id", school.ID,
							"error", delErr,
						)
					}
					return err
				}
				st.schoolID = school.ID
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.schools.Delete(ctx, st.schoolID)
			},
		},
		{
			Name: stepCreateIdentity,
			Run: func(ctx context.Context) error {
				identityID, err := s.gateway.CreateIdentity(ctx, identity.NewIdentity{
					Address: reg.AdminEmail,
					Secret:  reg.AdminSecret,
					Metadata: map[string]string{
						"school_id": st.schoolID.String(),
						"code":      st.code,
					},
				})
				if err != nil {
					if errors.Is(err, sentinel.ErrAlreadyUsed) {
						return dErrors.New(dErrors.CodeDuplicateIdentity, "address is already registered")
					}
					return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider unavailable")
				}
				st.identityID = identityID
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.gateway.DeleteIdentity(ctx, st.identityID)
			},
		},
		{
			Name: stepCreateProfile,
			Run: func(ctx context.Context) error {
				profile, err := membermodels.NewProfile(id.ProfileID(uuid.New()), st.identityID, st.schoolID, id.RoleTenantAdmin, displayName, requestcontext.Now(ctx))
				if err != nil {
					return err
				}
				if err := s.profiles.Create(ctx, profile); err != nil {
					if errors.Is(err, sentinel.ErrAlreadyUsed) {
						return dErrors.New(dErrors.CodeConflict, "identity already holds a profile in this school")
					}
					return dErrors.Wrap(err, dErrors.CodeUnavailable, "profile store unavailable")
				}
				st.profileID = profile.ID
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.profiles.Delete(ctx, st.profileID)
			},
		},
		{
			// Founding admins are stored as supervising teachers.
			Name: stepCreateRoleRecord,
			Run: func(ctx context.Context) error {
				rec, err := membermodels.NewTeacherRecord(st.profileID, st.schoolID, true, requestcontext.Now(ctx))
				if err != nil {
					return err
				}
				if err := s.assignments.CreateTeacher(ctx, rec); err != nil {
					return dErrors.Wrap(err, dErrors.CodeUnavailable, "assignment store unavailable")
				}
				return nil
			},
		},
	}
}

// sendVerificationLink is fire-and-forget. The admin can ask the
// provider for another link, so a failed send never fails a completed
// registration.
func (s *RegistrationService) sendVerificationLink(ctx context.Context, identityID id.IdentityID) {
	if err := s.gateway.SendVerificationLink(ctx, identityID, s.redirect); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "verification link not sent",
			"identity_id", identityID,
			"error", err,
		)
	}
}

func (s *RegistrationService) auditCompensationFailure(ctx context.Context, step string, err error) {
	s.auditEmitter.emitCompensationFailed(ctx, step, err)
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// resolveDisplayName falls back to the address's local part when the
// caller sent no name.
func resolveDisplayName(requested, address string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	local, _, _ := strings.Cut(address, "@")
	return local
}
