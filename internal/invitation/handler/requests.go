package handler

import (
	"strings"

	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/validation"
)

// IssueInvitationRequest creates an invitation into an existing school.
// Mode "open" is a shareable code; "email" binds the invitation to one
// recipient and returns a signed link.
type IssueInvitationRequest struct {
	SchoolID string `json:"school_id" validate:"required,notblank"`
	IssuerID string `json:"issuer_id" validate:"required,notblank"`
	Mode     string `json:"mode" validate:"required,oneof=open email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"required,notblank"`
}

func (r *IssueInvitationRequest) Normalize() {
	r.SchoolID = strings.TrimSpace(r.SchoolID)
	r.IssuerID = strings.TrimSpace(r.IssuerID)
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.TrimSpace(r.Role)
}

func (r *IssueInvitationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// AcceptInvitationRequest consumes an invitation. Either the raw code or
// the signed link token identifies it; display_name is optional and
// falls back to the invited address.
type AcceptInvitationRequest struct {
	Code        string `json:"code" validate:"omitempty,len=8"`
	Token       string `json:"token"`
	IdentityID  string `json:"identity_id" validate:"required,notblank"`
	DisplayName string `json:"display_name" validate:"omitempty,max=128"`
}

// Normalize uppercases the code. Codes are read off whiteboards and
// handouts, so case must not matter. Tokens are signed; they pass
// through untouched.
func (r *AcceptInvitationRequest) Normalize() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.Token = strings.TrimSpace(r.Token)
	r.IdentityID = strings.TrimSpace(r.IdentityID)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *AcceptInvitationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Code == "" && r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "code or token is required")
	}
	if r.Code != "" && r.Token != "" {
		return dErrors.New(dErrors.CodeValidation, "provide either code or token, not both")
	}
	return validation.Validate(r)
}
