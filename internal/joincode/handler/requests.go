package handler

import (
	"strings"

	dErrors "homeroom/pkg/domain-errors"
)

// VerifyCodeRequest carries the join code a prospective member typed in.
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// Normalize uppercases the code. Codes are read off whiteboards and
// handouts, so case must not matter.
func (r *VerifyCodeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

func (r *VerifyCodeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}
