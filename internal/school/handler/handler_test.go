package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"homeroom/internal/school/models"
	"homeroom/internal/school/service"
	schoolstore "homeroom/internal/school/store/school"
	id "homeroom/pkg/domain"
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	store  *schoolstore.InMemory
}

func (s *HandlerSuite) SetupTest() {
	s.store = schoolstore.NewInMemory()
	svc := service.NewSchoolService(s.store, nil, nil)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) seedSchool(name string) *models.School {
	s.T().Helper()
	school, err := models.NewSchool(id.SchoolID(uuid.New()), name, "ABCD2345", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateIfNameAvailable(context.Background(), school))
	return school
}

func (s *HandlerSuite) TestGetSchoolReturnsDetails() {
	school := s.seedSchool("Oak Elementary")

	req := httptest.NewRequest(http.MethodGet, "/schools/"+school.ID.String(), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp SchoolDetailsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(school.ID.String(), resp.ID)
	s.Equal("Oak Elementary", resp.Name)
	s.Equal(models.SchoolStatusActive, resp.Status)
}

func (s *HandlerSuite) TestGetSchoolRejectsMalformedID() {
	req := httptest.NewRequest(http.MethodGet, "/schools/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGetSchoolNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/schools/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestLookupSchoolByName() {
	school := s.seedSchool("Oak Elementary")

	req := httptest.NewRequest(http.MethodGet, "/schools/lookup?name=oak+elementary", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp SchoolResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(school.ID.String(), resp.ID)
}

func (s *HandlerSuite) TestLookupSchoolRequiresName() {
	req := httptest.NewRequest(http.MethodGet, "/schools/lookup", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestDeactivateThenConflictOnRepeat() {
	school := s.seedSchool("Oak Elementary")

	req := httptest.NewRequest(http.MethodPost, "/schools/"+school.ID.String()+"/deactivate", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp SchoolResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(models.SchoolStatusInactive, resp.Status)

	req = httptest.NewRequest(http.MethodPost, "/schools/"+school.ID.String()+"/deactivate", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestReactivateRestoresActiveStatus() {
	school := s.seedSchool("Oak Elementary")

	req := httptest.NewRequest(http.MethodPost, "/schools/"+school.ID.String()+"/deactivate", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/schools/"+school.ID.String()+"/reactivate", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp SchoolResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(models.SchoolStatusActive, resp.Status)
}
