package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUidNotFound     = fmt.Errorf("uid %w", ErrNotFound)
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)

	ErrInvalidTransition = workflow.ErrInvalidTransition
	ErrForbidden         = workflow.ErrForbidden

	ErrConcurrentModification = errors.New("concurrent modification, re-fetch and retry")
	ErrAllocationConflict     = errors.New("uid allocation conflict")
	ErrCascadeFailure         = errors.New("uid cascade delete failed")
	ErrValidationFailed       = errors.New("validation failed")
	ErrUnauthorized           = errors.New("unauthorized")
)

// ValidationErrors is re-exported so handlers only depend on services
type (
	ValidationError  = validator.ValidationError
	ValidationErrors = validator.ValidationErrors
)

func validationError(errs ValidationErrors) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, errs)
}

func forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// storeError translates repository sentinels into the service taxonomy.
func storeError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case repositories.IsNotFoundError(err):
		return notFound
	case repositories.IsVersionConflict(err):
		return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
	}
	return err
}
