package services

import (
	"errors"
	"fmt"

	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

// Sentinel errors handlers map to HTTP statuses with errors.Is.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrModuleNotFound     = errors.New("module not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrPathNotFound       = errors.New("onboarding path not found")

	ErrEmailTaken         = errors.New("email address is already registered")
	ErrTitleTaken         = errors.New("a module with this title already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")

	ErrModuleNotPublished  = errors.New("module is not published")
	ErrModuleRetired       = errors.New("module is retired")
	ErrAlreadyCompleted    = errors.New("assignment is already completed")
	ErrNotAssigned         = errors.New("module is not assigned to this user")
	ErrSelfDelete          = errors.New("users cannot delete their own account")
	ErrPublishedImmutable  = errors.New("published module content cannot be edited")
	ErrReportNotExportable = errors.New("report payload cannot be exported")
)

// ValidationErrors re-exports the validator type so handler code only
// depends on the services package.
type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value, Rule: "business"}}
}

// PermissionError carries the action the caller was not allowed to perform.
type PermissionError struct {
	UserID uint
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d is not permitted to %s", e.UserID, e.Action)
}

func NewPermissionError(userID uint, action string) *PermissionError {
	return &PermissionError{UserID: userID, Action: action}
}

// BusinessRuleError marks a request that is well formed but violates a
// domain rule, surfaced as 422 rather than 400.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
