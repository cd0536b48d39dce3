package handler

import "kinship/internal/member/models"

// MembersResponse wraps list results and the members a relationship action touched.
type MembersResponse struct {
	Members []*models.Member `json:"members"`
}

type RestoreResponse struct {
	Member  *models.Member       `json:"member"`
	Repairs models.RestoreReport `json:"repairs"`
}

func membersResponse(ms []*models.Member) MembersResponse {
	if ms == nil {
		ms = []*models.Member{}
	}
	return MembersResponse{Members: ms}
}
