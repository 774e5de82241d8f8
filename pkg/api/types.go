package api

import "github.com/platinummonkey/schoolreg/pkg/schools"

// ListSchoolsResponse is the body of GET /schools
type ListSchoolsResponse struct {
	Schools []*schools.School `json:"schools"`
}

// CreateSchoolResponse is the body of a successful POST /schools
type CreateSchoolResponse struct {
	ID int64 `json:"id"`
}

// Fixed client-facing messages for server-side failures
const (
	msgListFailed   = "Failed to fetch schools"
	msgCreateFailed = "Failed to add school"
)
