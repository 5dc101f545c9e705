package handler

import (
	"time"

	"homeroom/internal/joincode"
)

// HTTP Response DTOs - contain JSON tags for API serialization.

type RegenerateCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyCodeResponse struct {
	Valid    bool   `json:"valid"`
	SchoolID string `json:"school_id,omitempty"`
}

func toVerifyCodeResponse(v joincode.Verification) VerifyCodeResponse {
	resp := VerifyCodeResponse{Valid: v.Valid}
	if v.SchoolID != nil {
		resp.SchoolID = v.SchoolID.String()
	}
	return resp
}
