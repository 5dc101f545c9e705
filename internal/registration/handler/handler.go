// Package handler exposes school registration over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	regservice "homeroom/internal/registration/service"
	"homeroom/pkg/platform/httputil"
	"homeroom/pkg/requestcontext"
)

// Service defines the registration operation the HTTP layer needs.
type Service interface {
	RegisterSchool(ctx context.Context, reg regservice.SchoolRegistration) (*regservice.ProvisionedSchool, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegisterSchool)
}

// HandleRegisterSchool provisions a school and its founding administrator
// in one request. A 201 means every resource exists; any error means none
// do, apart from audited reconciliation cases.
func (h *Handler) HandleRegisterSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterSchoolRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.RegisterSchool(ctx, regservice.SchoolRegistration{
		SchoolName:       req.SchoolName,
		AdminEmail:       req.AdminEmail,
		AdminSecret:      req.AdminSecret,
		AdminDisplayName: req.AdminDisplayName,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "school registration failed",
			"error", err,
			"request_id", requestID,
			"school_name", req.SchoolName,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toRegisterSchoolResponse(result))
}
