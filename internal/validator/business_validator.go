package validator

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

// MaxPayloadBytes bounds a stored form, attendance or moderation payload.
const MaxPayloadBytes = 1 << 20

// BusinessValidator handles rules that struct tags cannot express
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: validate}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateStudentCreate checks a learner form submission
func (bv *BusinessValidator) ValidateStudentCreate(req *models.CreateStudentRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.LearnerName != "" && strings.TrimSpace(req.LearnerName) == "" {
		errors = append(errors, ValidationError{
			Field:   "learner_name",
			Message: "cannot be blank",
			Value:   req.LearnerName,
			Rule:    "business_logic",
		})
	}
	errors = append(errors, validatePayload("form_data", req.FormData)...)

	return errors
}

// ValidateDocument checks an attendance sheet or moderation record
func (bv *BusinessValidator) ValidateDocument(req *models.DocumentRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, validatePayload("data", req.Data)...)

	return errors
}

// ValidateAssignment requires at least one binding in the request.
// An empty string clears a binding; nil leaves it unchanged.
func (bv *BusinessValidator) ValidateAssignment(req *models.SetAssignmentRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.AssessorID == nil && req.ModeratorID == nil {
		errors = append(errors, ValidationError{
			Field:   "assessor_id",
			Message: "assessor_id or moderator_id is required",
			Rule:    "business_logic",
		})
	}
	if req.AssessorID != nil && *req.AssessorID != "" && req.ModeratorID != nil && *req.AssessorID == *req.ModeratorID {
		errors = append(errors, ValidationError{
			Field:   "moderator_id",
			Message: "moderator must differ from the assessor",
			Value:   *req.ModeratorID,
			Rule:    "business_logic",
		})
	}

	return errors
}

func validatePayload(field string, raw json.RawMessage) ValidationErrors {
	if len(raw) > MaxPayloadBytes {
		return ValidationErrors{{
			Field:   field,
			Message: "exceeds the 1 MiB payload limit",
			Value:   len(raw),
			Rule:    "business_logic",
		}}
	}
	return nil
}
