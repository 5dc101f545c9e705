package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"homeroom/internal/identity"
	codemodels "homeroom/internal/joincode/models"
	membermodels "homeroom/internal/member/models"
	schoolmodels "homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/audit"
)

// Failing collaborators abort the saga at a chosen step.

// failingProfileStore rejects every insert.
type failingProfileStore struct {
	ProfileStore
}

func (f *failingProfileStore) Create(context.Context, *membermodels.ProfileRecord) error {
	return errors.New("profiles tablespace full")
}

// failingAssignmentStore rejects teacher records; everything else works,
// so the unwind can still delete the profile.
type failingAssignmentStore struct {
	AssignmentStore
}

func (f *failingAssignmentStore) CreateTeacher(context.Context, *membermodels.TeacherRecord) error {
	return errors.New("assignment store rejected the row")
}

// stuckSchoolStore accepts rows but refuses to give them back.
type stuckSchoolStore struct {
	SchoolStore
}

func (f *stuckSchoolStore) Delete(context.Context, id.SchoolID) error {
	return errors.New("delete timed out")
}

// brokenUpdateCodeStore fails conditional updates, which aborts Bind.
type brokenUpdateCodeStore struct {
	*recordingCodeStore
}

func (f *brokenUpdateCodeStore) Update(context.Context, *codemodels.AccessCode) error {
	return errors.New("write conflict")
}

func (s *ServiceSuite) TestRegisterSchoolProvisionsEverything() {
	adminID := id.IdentityID(uuid.New())
	var created identity.NewIdentity
	s.gateway.EXPECT().FindByAddress(gomock.Any(), "dana.park@oak-elementary.edu").Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ni identity.NewIdentity) (id.IdentityID, error) {
			created = ni
			return adminID, nil
		})
	s.gateway.EXPECT().SendVerificationLink(gomock.Any(), adminID, testRedirect).Return(nil)

	result, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().NoError(err)
	s.Require().NotNil(result)

	s.False(result.SchoolID.IsNil())
	s.Len(result.Code, 8)
	s.Equal(adminID, result.IdentityID)

	school, err := s.schools.FindByID(s.ctx(), result.SchoolID)
	s.Require().NoError(err)
	s.Equal("Oak Elementary", school.Name)
	s.Equal(result.Code, school.ActiveCode)
	s.True(school.IsActive())

	// The code admits members and names its school.
	v, err := s.codeSvc.Verify(s.ctx(), result.Code)
	s.Require().NoError(err)
	s.True(v.Valid)
	s.Require().NotNil(v.SchoolID)
	s.Equal(result.SchoolID, *v.SchoolID)

	// The identity carried the secret and the provisioning metadata.
	s.Equal("dana.park@oak-elementary.edu", created.Address)
	s.Equal("correct horse battery staple", created.Secret)
	s.Equal(result.SchoolID.String(), created.Metadata["school_id"])
	s.Equal(result.Code, created.Metadata["code"])

	// Founding admin: tenant_admin profile plus supervising teacher record.
	profile, err := s.profiles.FindByIdentityAndSchool(s.ctx(), adminID, result.SchoolID)
	s.Require().NoError(err)
	s.Equal(id.RoleTenantAdmin, profile.Role)
	s.Equal("Dana Park", profile.DisplayName)

	teacher, err := s.assignments.FindTeacherByProfile(s.ctx(), profile.ID)
	s.Require().NoError(err)
	s.True(teacher.Supervisor)
	s.Equal(result.SchoolID, teacher.SchoolID)

	events := s.eventsByAction(audit.EventSchoolRegistered)
	s.Require().Len(events, 1)
	s.Equal(result.SchoolID.String(), events[0].SchoolID)
	s.Equal("dana.park@oak-elementary.edu", events[0].Email)
}

func (s *ServiceSuite) TestRegisterSchoolDerivesDisplayNameFromAddress() {
	reg := validRegistration()
	reg.AdminDisplayName = "   "

	adminID := id.IdentityID(uuid.New())
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Return(adminID, nil)
	s.gateway.EXPECT().SendVerificationLink(gomock.Any(), adminID, testRedirect).Return(nil)

	result, err := s.service.RegisterSchool(s.ctx(), reg)
	s.Require().NoError(err)

	profile, err := s.profiles.FindByIdentityAndSchool(s.ctx(), adminID, result.SchoolID)
	s.Require().NoError(err)
	s.Equal("dana.park", profile.DisplayName)
}

func (s *ServiceSuite) TestRegisterSchoolNormalizesAddress() {
	reg := validRegistration()
	reg.AdminEmail = "  Dana.Park@Oak-Elementary.EDU "

	adminID := id.IdentityID(uuid.New())
	var created identity.NewIdentity
	s.gateway.EXPECT().FindByAddress(gomock.Any(), "dana.park@oak-elementary.edu").Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ni identity.NewIdentity) (id.IdentityID, error) {
			created = ni
			return adminID, nil
		})
	s.gateway.EXPECT().SendVerificationLink(gomock.Any(), adminID, testRedirect).Return(nil)

	_, err := s.service.RegisterSchool(s.ctx(), reg)
	s.Require().NoError(err)
	s.Equal("dana.park@oak-elementary.edu", created.Address)
}

func (s *ServiceSuite) TestRegisterSchoolRequiresCoreFields() {
	cases := []struct {
		name   string
		mutate func(*SchoolRegistration)
	}{
		{"blank school name", func(r *SchoolRegistration) { r.SchoolName = "  " }},
		{"blank email", func(r *SchoolRegistration) { r.AdminEmail = "" }},
		{"blank secret", func(r *SchoolRegistration) { r.AdminSecret = "" }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			reg := validRegistration()
			tc.mutate(&reg)

			result, err := s.service.RegisterSchool(s.ctx(), reg)
			s.Nil(result)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestRegisterSchoolRejectsKnownAddress() {
	existing := id.IdentityID(uuid.New())
	s.gateway.EXPECT().FindByAddress(gomock.Any(), "dana.park@oak-elementary.edu").Return(existing, nil)

	result, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateIdentity), "got %v", err)

	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Zero(count)
	s.Empty(s.codes.created, "no code should have been reserved")

	// Nothing was provisioned, so nothing was reversed.
	events, err := s.auditStore.ListAll(context.Background())
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ServiceSuite) TestRegisterSchoolProviderDuplicateWinsOverAdvisoryCheck() {
	// The advisory lookup sees nothing, then the provider's own
	// uniqueness constraint fires on create.
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).
		Return(id.IdentityID{}, fmt.Errorf("address already registered: %w", sentinel.ErrAlreadyUsed))

	result, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateIdentity), "got %v", err)

	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Zero(count, "school row should be unwound")
	s.requireCodesReleased()
	s.Len(s.eventsByAction(audit.EventRegistrationReversed), 1)
}

func (s *ServiceSuite) TestRegisterSchoolNameTakenReleasesReservation() {
	seed, err := schoolmodels.NewSchool(id.SchoolID(uuid.New()), "Oak Elementary", "AAAA2222", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.schools.CreateIfNameAvailable(s.ctx(), seed))

	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)

	result, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)

	s.requireCodesReleased()
	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Equal(1, count, "the original school must be untouched")
}

func (s *ServiceSuite) TestRegisterSchoolUnwindsWhenIdentityProviderDown() {
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).
		Return(id.IdentityID{}, errors.New("connect: connection refused"))

	result, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)

	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Zero(count)
	s.requireCodesReleased()
	s.Len(s.eventsByAction(audit.EventRegistrationReversed), 1)
}

func (s *ServiceSuite) TestRegisterSchoolUnwindsWhenProfileStoreFails() {
	adminID := id.IdentityID(uuid.New())
	var created identity.NewIdentity
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ni identity.NewIdentity) (id.IdentityID, error) {
			created = ni
			return adminID, nil
		})
	// The unwind must remove the identity again.
	s.gateway.EXPECT().DeleteIdentity(gomock.Any(), adminID).Return(nil)

	svc := s.newService(s.codes, s.schools, &failingProfileStore{ProfileStore: s.profiles}, s.assignments)

	result, err := svc.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)

	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Zero(count, "school row should be unwound")
	s.requireCodesReleased()

	schoolID, err := id.ParseSchoolID(created.Metadata["school_id"])
	s.Require().NoError(err)
	_, err = s.profiles.FindByIdentityAndSchool(context.Background(), adminID, schoolID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	reversed := s.eventsByAction(audit.EventRegistrationReversed)
	s.Require().Len(reversed, 1)
	s.Equal("Oak Elementary", reversed[0].Subject)
	s.Empty(s.eventsByAction(audit.EventSchoolRegistered))
}

func (s *ServiceSuite) TestRegisterSchoolUnwindsWhenAssignmentStoreFails() {
	adminID := id.IdentityID(uuid.New())
	var created identity.NewIdentity
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ni identity.NewIdentity) (id.IdentityID, error) {
			created = ni
			return adminID, nil
		})
	s.gateway.EXPECT().DeleteIdentity(gomock.Any(), adminID).Return(nil)

	svc := s.newService(s.codes, s.schools, s.profiles, &failingAssignmentStore{AssignmentStore: s.assignments})

	result, err := svc.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)

	// The profile created in step five is gone again.
	schoolID, err := id.ParseSchoolID(created.Metadata["school_id"])
	s.Require().NoError(err)
	_, err = s.profiles.FindByIdentityAndSchool(context.Background(), adminID, schoolID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Zero(count)
	s.requireCodesReleased()
}

func (s *ServiceSuite) TestRegisterSchoolBindFailureRemovesSchoolRow() {
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)

	svc := s.newService(&brokenUpdateCodeStore{recordingCodeStore: s.codes}, s.schools, s.profiles, s.assignments)

	result, err := svc.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)

	// The step removed its own half-created school row before failing.
	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Zero(count)
	s.requireCodesReleased()
}

func (s *ServiceSuite) TestRegisterSchoolCompensationFailureNeverMasksStepError() {
	adminID := id.IdentityID(uuid.New())
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Return(adminID, nil)
	s.gateway.EXPECT().DeleteIdentity(gomock.Any(), adminID).Return(nil)

	svc := s.newService(s.codes,
		&stuckSchoolStore{SchoolStore: s.schools},
		&failingProfileStore{ProfileStore: s.profiles},
		s.assignments,
	)

	result, err := svc.RegisterSchool(s.ctx(), validRegistration())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "caller sees the step error, not the undo error")
	s.NotContains(err.Error(), "delete timed out")

	// The stuck school row stays behind for reconciliation, and the
	// unwind still continued past it.
	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Equal(1, count)
	s.requireCodesReleased()

	failed := s.eventsByAction(audit.EventCompensationFailed)
	s.Require().Len(failed, 1)
	s.Equal(stepCreateSchool, failed[0].Subject)
	s.Len(s.eventsByAction(audit.EventRegistrationReversed), 1)
}

func (s *ServiceSuite) TestRegisterSchoolSucceedsWhenVerificationLinkFails() {
	adminID := id.IdentityID(uuid.New())
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Return(adminID, nil)
	s.gateway.EXPECT().SendVerificationLink(gomock.Any(), adminID, testRedirect).
		Return(errors.New("smtp relay down"))

	result, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().NoError(err, "a failed link send must not fail a completed registration")
	s.Require().NotNil(result)
	s.Len(s.eventsByAction(audit.EventSchoolRegistered), 1)
}

func (s *ServiceSuite) TestSecondRegistrationForSameAddressLeavesFirstIntact() {
	adminID := id.IdentityID(uuid.New())
	s.gateway.EXPECT().FindByAddress(gomock.Any(), gomock.Any()).Return(id.IdentityID{}, sentinel.ErrNotFound)
	s.gateway.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Return(adminID, nil)
	s.gateway.EXPECT().SendVerificationLink(gomock.Any(), adminID, testRedirect).Return(nil)

	first, err := s.service.RegisterSchool(s.ctx(), validRegistration())
	s.Require().NoError(err)

	// The directory knows the address now.
	s.gateway.EXPECT().FindByAddress(gomock.Any(), "dana.park@oak-elementary.edu").Return(adminID, nil)

	reg := validRegistration()
	reg.SchoolName = "Oak Elementary Annex"
	result, err := s.service.RegisterSchool(s.ctx(), reg)
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateIdentity), "got %v", err)

	count, err := s.schools.Count(s.ctx())
	s.Require().NoError(err)
	s.Equal(1, count)

	v, err := s.codeSvc.Verify(s.ctx(), first.Code)
	s.Require().NoError(err)
	s.True(v.Valid, "the first school's code must still verify")
}
