package handler

import (
	regservice "homeroom/internal/registration/service"
)

// RegisterSchoolResponse returns the provisioned identifiers. The join
// code appears here exactly once; it is never readable again through
// the API.
type RegisterSchoolResponse struct {
	Success    bool   `json:"success"`
	SchoolID   string `json:"school_id"`
	Code       string `json:"code"`
	IdentityID string `json:"identity_id"`
}

func toRegisterSchoolResponse(p *regservice.ProvisionedSchool) RegisterSchoolResponse {
	return RegisterSchoolResponse{
		Success:    true,
		SchoolID:   p.SchoolID.String(),
		Code:       p.Code,
		IdentityID: p.IdentityID.String(),
	}
}
