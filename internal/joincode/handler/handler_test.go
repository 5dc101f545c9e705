package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"homeroom/internal/joincode/service"
	codestore "homeroom/internal/joincode/store/code"
	schoolmodels "homeroom/internal/school/models"
	schoolstore "homeroom/internal/school/store/school"
	id "homeroom/pkg/domain"
)

type HandlerSuite struct {
	suite.Suite
	router  http.Handler
	svc     *service.CodeService
	schools *schoolstore.InMemory
}

func (s *HandlerSuite) SetupTest() {
	codes := codestore.NewInMemory()
	s.schools = schoolstore.NewInMemory()
	s.svc = service.NewCodeService(codes, s.schools)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(s.svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) seedSchool(name string) *schoolmodels.School {
	s.T().Helper()
	ctx := context.Background()

	code, err := s.svc.IssueInitial(ctx, name)
	s.Require().NoError(err)
	school, err := schoolmodels.NewSchool(id.SchoolID(uuid.New()), name, code, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.schools.CreateIfNameAvailable(ctx, school))
	s.Require().NoError(s.svc.Bind(ctx, code, school.ID))
	return school
}

func (s *HandlerSuite) verify(code string) *httptest.ResponseRecorder {
	body, err := json.Marshal(VerifyCodeRequest{Code: code})
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/codes/verify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestVerifyActiveCode() {
	school := s.seedSchool("Oak Elementary")

	rec := s.verify(school.ActiveCode)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp VerifyCodeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Valid)
	s.Equal(school.ID.String(), resp.SchoolID)
}

func (s *HandlerSuite) TestVerifyIsCaseInsensitive() {
	school := s.seedSchool("Oak Elementary")

	rec := s.verify("  " + strings.ToLower(school.ActiveCode) + " ")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp VerifyCodeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Valid)
}

func (s *HandlerSuite) TestVerifyUnknownCodeIsNotAnError() {
	rec := s.verify("ZZZZ9999")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp VerifyCodeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Valid)
	s.Empty(resp.SchoolID)
}

func (s *HandlerSuite) TestVerifyRequiresCode() {
	rec := s.verify("   ")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestVerifyRejectsMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/codes/verify", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRegenerateRotatesCode() {
	school := s.seedSchool("Oak Elementary")
	oldCode := school.ActiveCode

	req := httptest.NewRequest(http.MethodPost, "/schools/"+school.ID.String()+"/code/regenerate", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp RegenerateCodeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.NotEqual(oldCode, resp.Code)
	s.True(resp.ExpiresAt.After(time.Now()))

	// The old code stops verifying, the new one starts.
	var v VerifyCodeResponse
	s.Require().NoError(json.Unmarshal(s.verify(oldCode).Body.Bytes(), &v))
	s.False(v.Valid)
	s.Require().NoError(json.Unmarshal(s.verify(resp.Code).Body.Bytes(), &v))
	s.True(v.Valid)
}

func (s *HandlerSuite) TestRegenerateRejectsMalformedID() {
	req := httptest.NewRequest(http.MethodPost, "/schools/not-a-uuid/code/regenerate", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRegenerateUnknownSchool() {
	req := httptest.NewRequest(http.MethodPost, "/schools/"+uuid.New().String()+"/code/regenerate", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusNotFound, rec.Code)
}
