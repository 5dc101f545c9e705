package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"homeroom/internal/school/models"
	"homeroom/internal/school/readmodels"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/httputil"
	"homeroom/pkg/requestcontext"
)

// Service defines the interface for school operations.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	GetSchool(ctx context.Context, id id.SchoolID) (*models.School, error)
	GetSchoolByName(ctx context.Context, name string) (*models.School, error)
	GetSchoolDetails(ctx context.Context, id id.SchoolID) (*readmodels.SchoolDetails, error)
	DeactivateSchool(ctx context.Context, id id.SchoolID) (*models.School, error)
	ReactivateSchool(ctx context.Context, id id.SchoolID) (*models.School, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/schools/lookup", h.HandleLookupSchool)
	r.Get("/schools/{id}", h.HandleGetSchool)
	r.Post("/schools/{id}/deactivate", h.HandleDeactivateSchool)
	r.Post("/schools/{id}/reactivate", h.HandleReactivateSchool)
}

// HandleGetSchool returns school metadata with member counts.
func (h *Handler) HandleGetSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	idStr := chi.URLParam(r, "id")
	schoolID, err := id.ParseSchoolID(idStr)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	res, err := h.service.GetSchoolDetails(ctx, schoolID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get school failed", "error", err, "request_id", requestID, "school_id", schoolID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSchoolDetailsResponse(res))
}

// HandleLookupSchool finds a school by name. Registration pre-checks use
// this to tell "name taken" apart from "never registered".
func (h *Handler) HandleLookupSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	school, err := h.service.GetSchoolByName(ctx, r.URL.Query().Get("name"))
	if err != nil {
		h.logger.ErrorContext(ctx, "lookup school failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(school))
}

// HandleDeactivateSchool deactivates a school. Deactivated schools keep
// their data but block join-code regeneration and invitation issuance.
func (h *Handler) HandleDeactivateSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	idStr := chi.URLParam(r, "id")
	schoolID, err := id.ParseSchoolID(idStr)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	school, err := h.service.DeactivateSchool(ctx, schoolID)
	if err != nil {
		h.logger.ErrorContext(ctx, "deactivate school failed", "error", err, "request_id", requestID, "school_id", schoolID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(school))
}

// HandleReactivateSchool reactivates a school.
func (h *Handler) HandleReactivateSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	idStr := chi.URLParam(r, "id")
	schoolID, err := id.ParseSchoolID(idStr)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	school, err := h.service.ReactivateSchool(ctx, schoolID)
	if err != nil {
		h.logger.ErrorContext(ctx, "reactivate school failed", "error", err, "request_id", requestID, "school_id", schoolID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(school))
}
