package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

func ptr(s string) *string { return &s }

func TestValidate_WorkflowTags(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     interface{}
		field   string
		wantErr bool
	}{
		{"valid uid status", &models.UpdateUidStatusRequest{Status: models.UidApproved}, "", false},
		{"unknown uid status", &models.UpdateUidStatusRequest{Status: "archived"}, "status", true},
		{"missing uid status", &models.UpdateUidStatusRequest{}, "status", true},
		{"valid student status", &models.UpdateStudentStatusRequest{Status: models.StudentRejected}, "", false},
		{"unknown student status", &models.UpdateStudentStatusRequest{Status: "lost"}, "status", true},
		{"form payload object", &models.CreateStudentRequest{LearnerName: "Lee", FormData: json.RawMessage(`{"version":1}`)}, "", false},
		{"form payload array", &models.CreateStudentRequest{LearnerName: "Lee", FormData: json.RawMessage(`[1,2]`)}, "form_data", true},
		{"form payload missing", &models.CreateStudentRequest{LearnerName: "Lee"}, "form_data", true},
		{"learner name missing", &models.CreateStudentRequest{FormData: json.RawMessage(`{}`)}, "learner_name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve ValidationErrors
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve[0].Field)
		})
	}
}

func TestBusinessValidator_Assignment(t *testing.T) {
	bv := New().GetBusinessValidator()

	assert.NotEmpty(t, bv.ValidateAssignment(&models.SetAssignmentRequest{}))
	assert.Empty(t, bv.ValidateAssignment(&models.SetAssignmentRequest{ModeratorID: ptr("m-42")}))
	assert.Empty(t, bv.ValidateAssignment(&models.SetAssignmentRequest{AssessorID: ptr("")}))

	errs := bv.ValidateAssignment(&models.SetAssignmentRequest{AssessorID: ptr("u-1"), ModeratorID: ptr("u-1")})
	require.Len(t, errs, 1)
	assert.Equal(t, "moderator_id", errs[0].Field)
}

func TestBusinessValidator_StudentCreate(t *testing.T) {
	bv := New().GetBusinessValidator()

	errs := bv.ValidateStudentCreate(&models.CreateStudentRequest{LearnerName: "   ", FormData: json.RawMessage(`{}`)})
	require.Len(t, errs, 1)
	assert.Equal(t, "learner_name", errs[0].Field)

	big := `{"blob":"` + strings.Repeat("x", MaxPayloadBytes) + `"}`
	errs = bv.ValidateStudentCreate(&models.CreateStudentRequest{LearnerName: "Lee", FormData: json.RawMessage(big)})
	require.Len(t, errs, 1)
	assert.Equal(t, "form_data", errs[0].Field)
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
	assert.Equal(t, "validation failed: status is required",
		ValidationErrors{{Field: "status", Message: "is required"}}.Error())
	assert.Equal(t, "validation failed: 2 field errors",
		ValidationErrors{{}, {}}.Error())
}
