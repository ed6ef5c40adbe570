package services

import (
	"errors"
	"fmt"

	"github.com/safestep-care/safestep-service/internal/validator"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrIncidentNotFound   = errors.New("incident not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrZoneNotFound       = errors.New("safety zone not found")
	ErrModuleNotFound     = errors.New("training module not found")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrCarePlanNotFound   = errors.New("care plan not found")
	ErrTaskNotFound       = errors.New("care plan task not found")
	ErrContactNotFound    = errors.New("emergency contact not found")
	ErrAlertNotFound      = errors.New("alert not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrJobNotFound        = errors.New("prediction job not found")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")

	ErrSessionAlreadyActive = errors.New("a seizure session is already active for this patient")
	ErrJobAlreadyRunning    = errors.New("a prediction run is already in progress")
	ErrAssistantUnavailable = errors.New("assistant provider is unavailable")
	ErrAssistantDisabled    = errors.New("assistant is not configured")
)

// ValidationErrors re-exported so handlers can type-assert service errors.
type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when a user acts on a resource they do not own.
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError is returned when an operation violates a domain rule
// that plain field validation cannot express.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// IsPermissionError reports whether err is a permission failure.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsBusinessRuleError reports whether err is a domain rule violation.
func IsBusinessRuleError(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
