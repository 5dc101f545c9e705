// Package handler exposes invitation issuance and acceptance over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	invmodels "homeroom/internal/invitation/models"
	invservice "homeroom/internal/invitation/service"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/httputil"
	"homeroom/pkg/requestcontext"
)

// Service defines the invitation operations the HTTP layer needs.
type Service interface {
	Issue(ctx context.Context, cmd invservice.IssueInvitation) (*invservice.IssuedInvitation, error)
	Accept(ctx context.Context, cmd invservice.AcceptInvitation) (*invservice.AcceptedInvitation, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/invitations", h.HandleIssueInvitation)
	r.Post("/invitations/accept", h.HandleAcceptInvitation)
}

// HandleIssueInvitation creates a pending invitation for an existing
// school. The issuer must hold an inviting role there; the stored
// assignment record is the authority.
func (h *Handler) HandleIssueInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueInvitationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schoolID, err := id.ParseSchoolID(req.SchoolID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}
	issuerID, err := id.ParseIdentityID(req.IssuerID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid issuer id"))
		return
	}
	role, ok2 := id.ParseRole(req.Role)
	if !ok2 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown role"))
		return
	}

	issued, err := h.service.Issue(ctx, invservice.IssueInvitation{
		SchoolID: schoolID,
		IssuerID: issuerID,
		Mode:     invmodels.InviteMode(req.Mode),
		Email:    req.Email,
		Role:     role,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "invitation issuance failed",
			"error", err,
			"request_id", requestID,
			"school_id", schoolID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toIssueInvitationResponse(issued))
}

// HandleAcceptInvitation consumes an invitation code or signed link and
// enrolls the accepting identity into the school.
func (h *Handler) HandleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AcceptInvitationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identityID, err := id.ParseIdentityID(req.IdentityID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identity id"))
		return
	}

	accepted, err := h.service.Accept(ctx, invservice.AcceptInvitation{
		Code:        req.Code,
		Token:       req.Token,
		IdentityID:  identityID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "invitation acceptance failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAcceptInvitationResponse(accepted))
}
