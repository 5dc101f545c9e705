package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"homeroom/internal/joincode"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/httputil"
	"homeroom/pkg/requestcontext"
)

// Service defines the join-code operations the HTTP layer needs.
type Service interface {
	Regenerate(ctx context.Context, schoolID id.SchoolID) (string, time.Time, error)
	Verify(ctx context.Context, code string) (joincode.Verification, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/schools/{id}/code/regenerate", h.HandleRegenerateCode)
	r.Post("/codes/verify", h.HandleVerifyCode)
}

// HandleRegenerateCode revokes the school's current join code and issues a
// fresh one. The new code is returned exactly once; it is never readable
// again through the API.
func (h *Handler) HandleRegenerateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	idStr := chi.URLParam(r, "id")
	schoolID, err := id.ParseSchoolID(idStr)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	code, expiresAt, err := h.service.Regenerate(ctx, schoolID)
	if err != nil {
		h.logger.ErrorContext(ctx, "regenerate join code failed", "error", err, "request_id", requestID, "school_id", schoolID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RegenerateCodeResponse{Code: code, ExpiresAt: expiresAt})
}

// HandleVerifyCode checks whether a join code can still admit members. An
// invalid code is a 200 with valid=false, not an error; signup forms probe
// this endpoint before asking for the rest of the details.
func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.Verify(ctx, req.Code)
	if err != nil {
		h.logger.ErrorContext(ctx, "verify join code failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toVerifyCodeResponse(v))
}
