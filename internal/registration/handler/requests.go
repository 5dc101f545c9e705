package handler

import (
	"strings"

	dErrors "homeroom/pkg/domain-errors"
	s "homeroom/pkg/string"
	"homeroom/pkg/validation"
)

// RegisterSchoolRequest is the signup payload: the school plus its
// founding administrator.
type RegisterSchoolRequest struct {
	SchoolName       string `json:"school_name" validate:"required,notblank,max=128"`
	AdminEmail       string `json:"admin_email" validate:"required,email"`
	AdminSecret      string `json:"admin_secret" validate:"required,notblank"`
	AdminDisplayName string `json:"admin_display_name" validate:"omitempty,max=128"`
}

// Normalize trims the name fields and lowercases the address so the
// duplicate checks downstream compare like with like.
func (r *RegisterSchoolRequest) Normalize() {
	s.TrimStrings(&r.SchoolName, &r.AdminDisplayName)
	r.AdminEmail = strings.ToLower(strings.TrimSpace(r.AdminEmail))
}

func (r *RegisterSchoolRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
