package models

import (
	"encoding/json"
)

type CreateUidRequest struct {
	Assessor *AssessorProfile `json:"assessor"`
}

type UpdateUidStatusRequest struct {
	Status UidStatus `json:"status" validate:"required,uid_status"`
}

type SetAssignmentRequest struct {
	AssessorID  *string `json:"assessor_id" validate:"omitempty,max=255"`
	ModeratorID *string `json:"moderator_id" validate:"omitempty,max=255"`
}

// CreateStudentRequest is the public learner form submission.
type CreateStudentRequest struct {
	LearnerName string          `json:"learner_name" validate:"required,min=1,max=200"`
	CompanyName string          `json:"company_name" validate:"omitempty,max=200"`
	FormVersion int             `json:"form_version" validate:"omitempty,min=1"`
	FormData    json.RawMessage `json:"form_data" validate:"required,json_object"`
}

type UpdateStudentStatusRequest struct {
	Status StudentStatus `json:"status" validate:"required,student_status"`
}

// DocumentRequest carries an attendance sheet or moderation record.
type DocumentRequest struct {
	SchemaVersion int             `json:"schema_version" validate:"omitempty,min=1"`
	Data          json.RawMessage `json:"data" validate:"required,json_object"`
}

type UidListResponse struct {
	Uids  []*UidRecord `json:"uids"`
	Total int          `json:"total"`
}

type StudentListResponse struct {
	Students []*Student `json:"students"`
	Total    int        `json:"total"`
}

// StatsSnapshot is recomputed on every request from committed state.
type StatsSnapshot struct {
	TotalUids          int                   `json:"total_uids"`
	UidsByStatus       map[UidStatus]int     `json:"uids_by_status"`
	WithAssessorCount  int                   `json:"with_assessor_count"`
	WithModeratorCount int                   `json:"with_moderator_count"`
	TotalStudents      int                   `json:"total_students"`
	StudentsByStatus   map[StudentStatus]int `json:"students_by_status"`
}

type DeleteUidResponse struct {
	UID     string `json:"uid"`
	Deleted bool   `json:"deleted"`
}
