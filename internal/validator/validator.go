package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the workflow tags registered
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so clients see the field they sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	registerWorkflowTags(validate)

	return &Validator{
		validate: validate,
		business: newBusinessValidator(validate),
	}
}

// Validate checks struct tags. It returns ValidationErrors or nil.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// ToValidationErrors converts validator output to ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var already ValidationErrors
	if errors.As(err, &already) {
		return already
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   printableValue(fe.Value()),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func printableValue(v interface{}) interface{} {
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}
	return v
}

func registerWorkflowTags(validate *validator.Validate) {
	validate.RegisterValidation("uid_status", func(fl validator.FieldLevel) bool {
		return models.UidStatus(fl.Field().String()).IsValid()
	})

	validate.RegisterValidation("student_status", func(fl validator.FieldLevel) bool {
		return models.StudentStatus(fl.Field().String()).IsValid()
	})

	validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	// UID identifiers are digit strings
	validate.RegisterValidation("uid", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})

	// json_object accepts a raw JSON payload whose top level is an object
	validate.RegisterValidation("json_object", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			if b, isBytes := fl.Field().Interface().([]byte); isBytes {
				raw = b
			} else {
				return false
			}
		}
		var obj map[string]json.RawMessage
		return json.Unmarshal(raw, &obj) == nil && obj != nil
	})
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uid_status":
		return "must be a valid UID status"
	case "student_status":
		return "must be a valid student status"
	case "user_role":
		return "must be a valid user role"
	case "uid":
		return "must be a numeric UID"
	case "json_object":
		return "must be a JSON object"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
