package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
)

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the standard success payload for operations that
// return a confirmation rather than a resource
type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// BaseHandler carries the shared plumbing every handler needs
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs a handler entry with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Info(msg, args...)
}

// LogError logs a handler failure with the request-scoped logger
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.LoggerFromContext(c.Request.Context(), h.logger).Error(msg, args...)
}

// currentUser returns the authenticated user ID from the context, writing a
// 401 response when the session middleware did not set one.
func (h *BaseHandler) currentUser(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return 0, false
	}
	return userID.(uint), true
}

// currentRole returns the authenticated user's role, defaulting to caregiver
func (h *BaseHandler) currentRole(c *gin.Context) models.UserRole {
	role, exists := c.Get("user_role")
	if !exists {
		return models.RoleCaregiver
	}
	return role.(models.UserRole)
}

// parseIDParam parses a numeric path parameter. It writes a 400 response and
// returns 0 when the parameter is not a valid ID.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: err.Error(),
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *BaseHandler) parseUintQueryPtr(c *gin.Context, param string) *uint {
	valueStr := c.Query(param)
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 32)
	if err != nil {
		return nil
	}
	id := uint(value)
	return &id
}

func (h *BaseHandler) parseStringQueryPtr(c *gin.Context, param string) *string {
	valueStr := c.Query(param)
	if valueStr == "" {
		return nil
	}
	return &valueStr
}

func (h *BaseHandler) parseBoolQueryPtr(c *gin.Context, param string) *bool {
	valueStr := c.Query(param)
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return nil
	}
	return &value
}

func (h *BaseHandler) parseTimeQueryPtr(c *gin.Context, param string) *time.Time {
	valueStr := c.Query(param)
	if valueStr == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, valueStr)
	if err != nil {
		if t, err = time.Parse("2006-01-02", valueStr); err != nil {
			return nil
		}
	}
	return &t
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule": businessRuleError.Rule,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrPatientNotFound),
		errors.Is(err, services.ErrIncidentNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrZoneNotFound),
		errors.Is(err, services.ErrModuleNotFound),
		errors.Is(err, services.ErrMedicationNotFound),
		errors.Is(err, services.ErrCarePlanNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrContactNotFound),
		errors.Is(err, services.ErrAlertNotFound),
		errors.Is(err, services.ErrTicketNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountDisabled):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrSessionAlreadyActive),
		errors.Is(err, services.ErrJobAlreadyRunning):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrAssistantDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Assistant is not configured",
		})
	case errors.Is(err, services.ErrAssistantUnavailable):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Assistant provider is unavailable",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
