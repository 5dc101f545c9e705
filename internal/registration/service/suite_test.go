package service

//go:generate mockgen -source=../../identity/gateway.go -destination=mocks/gateway_mock.go -package=mocks Gateway

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	codemodels "homeroom/internal/joincode/models"
	codeservice "homeroom/internal/joincode/service"
	codestore "homeroom/internal/joincode/store/code"
	assignmentstore "homeroom/internal/member/store/assignment"
	profilestore "homeroom/internal/member/store/profile"
	"homeroom/internal/registration/service/mocks"
	schoolstore "homeroom/internal/school/store/school"
	"homeroom/internal/sentinel"
	"homeroom/pkg/platform/audit"
	"homeroom/pkg/platform/audit/publisher"
	auditmemory "homeroom/pkg/platform/audit/store/memory"
	"homeroom/pkg/requestcontext"
)

const testRedirect = "https://app.homeroom.example/welcome"

type ServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	gateway     *mocks.MockGateway
	codes       *recordingCodeStore
	schools     *schoolstore.InMemory
	profiles    *profilestore.InMemory
	assignments *assignmentstore.InMemory
	auditStore  *auditmemory.InMemoryStore
	codeSvc     *codeservice.CodeService
	service     *RegistrationService
	now         time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.codes = &recordingCodeStore{InMemory: codestore.NewInMemory()}
	s.schools = schoolstore.NewInMemory()
	s.profiles = profilestore.NewInMemory()
	s.assignments = assignmentstore.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.service = s.newService(s.codes, s.schools, s.profiles, s.assignments)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// newService assembles a service over the given collaborators. Tests
// swap in failing wrappers to abort the saga at a chosen step.
func (s *ServiceSuite) newService(codeStore codeservice.CodeStore, schools SchoolStore, profiles ProfileStore, assignments AssignmentStore) *RegistrationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.codeSvc = codeservice.NewCodeService(codeStore, s.schools, codeservice.WithLogger(logger))
	return New(s.codeSvc, schools, profiles, assignments, s.gateway,
		WithLogger(logger),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithVerificationRedirect(testRedirect),
	)
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func validRegistration() SchoolRegistration {
	return SchoolRegistration{
		SchoolName:       "Oak Elementary",
		AdminEmail:       "dana.park@oak-elementary.edu",
		AdminSecret:      "correct horse battery staple",
		AdminDisplayName: "Dana Park",
	}
}

// recordingCodeStore remembers every code it stored, so unwind tests can
// check the rows are gone even though the codes never reach the caller.
type recordingCodeStore struct {
	*codestore.InMemory
	created []string
}

func (r *recordingCodeStore) CreateIfAvailable(ctx context.Context, code *codemodels.AccessCode) error {
	if err := r.InMemory.CreateIfAvailable(ctx, code); err != nil {
		return err
	}
	r.created = append(r.created, code.Code)
	return nil
}

// requireCodesReleased asserts every code the saga reserved was deleted
// again during the unwind.
func (s *ServiceSuite) requireCodesReleased() {
	s.T().Helper()
	s.Require().NotEmpty(s.codes.created, "expected the saga to have reserved a code")
	for _, code := range s.codes.created {
		_, err := s.codes.FindByCode(context.Background(), code)
		s.ErrorIs(err, sentinel.ErrNotFound, "code %s should have been released", code)
	}
}

func (s *ServiceSuite) eventsByAction(action audit.AuditEvent) []audit.Event {
	s.T().Helper()
	events, err := s.auditStore.ListAll(context.Background())
	s.Require().NoError(err)
	var matched []audit.Event
	for _, ev := range events {
		if ev.Action == string(action) {
			matched = append(matched, ev)
		}
	}
	return matched
}
