package handler

import (
	"time"

	invservice "homeroom/internal/invitation/service"
)

// HTTP Response DTOs - contain JSON tags for API serialization.

type IssueInvitationResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Link      string    `json:"link,omitempty"`
}

type AcceptInvitationResponse struct {
	SchoolID string `json:"school_id"`
	Role     string `json:"role"`
}

func toIssueInvitationResponse(issued *invservice.IssuedInvitation) IssueInvitationResponse {
	return IssueInvitationResponse{
		Code:      issued.Code,
		ExpiresAt: issued.ExpiresAt,
		Link:      issued.Link,
	}
}

func toAcceptInvitationResponse(accepted *invservice.AcceptedInvitation) AcceptInvitationResponse {
	return AcceptInvitationResponse{
		SchoolID: accepted.SchoolID.String(),
		Role:     accepted.Role.String(),
	}
}
