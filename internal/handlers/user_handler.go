package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

// UserHandler exposes the admin account management endpoints
type UserHandler struct {
	BaseHandler
	userService services.UserService
	validator   *validator.Validator
}

func NewUserHandler(
	userService services.UserService,
	validator *validator.Validator,
	logger utils.Logger,
) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
		validator:   validator,
	}
}

// ListUsers lists accounts
// @Summary List accounts
// @Tags admin
// @Produce json
// @Param role query string false "Filter by role"
// @Param is_active query bool false "Filter by active flag"
// @Param q query string false "Search by name, username or email"
// @Success 200 {object} services.UserListResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	filters := repositories.UserFilters{
		IsActive: h.parseBoolQueryPtr(c, "is_active"),
		Query:    c.Query("q"),
		Limit:    h.parseIntQuery(c, "limit", 20),
		Offset:   h.parseIntQuery(c, "offset", 0),
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filters.Role = &r
	}

	h.LogRequest(c, "Listing accounts")

	users, err := h.userService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// CreateUser provisions an account with any role
// @Summary Create account
// @Tags admin
// @Accept json
// @Produce json
// @Param user body services.CreateUserRequest true "Account data"
// @Success 201 {object} models.User
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating account", "username", req.Username, "role", req.Role)

	user, err := h.userService.Create(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser retrieves an account by ID
// @Summary Get account
// @Tags admin
// @Produce json
// @Param id path uint true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser updates an account's role, names or active flag
// @Summary Update account
// @Description Admins cannot demote or deactivate themselves
// @Tags admin
// @Accept json
// @Produce json
// @Param id path uint true "User ID"
// @Param user body services.UpdateUserRequest true "Account update"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating account", "target_id", id)

	user, err := h.userService.Update(c.Request.Context(), id, &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeactivateUser disables an account
// @Summary Deactivate account
// @Tags admin
// @Produce json
// @Param id path uint true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/users/{id}/deactivate [put]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deactivating account", "target_id", id)

	if err := h.userService.Deactivate(c.Request.Context(), id, adminID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Account deactivated",
		Timestamp: time.Now().UTC(),
	})
}

// DeleteUser removes an account
// @Summary Delete account
// @Description Self-deletion and deleting the last admin are blocked
// @Tags admin
// @Produce json
// @Param id path uint true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting account", "target_id", id)

	if err := h.userService.Delete(c.Request.Context(), id, adminID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Account deleted",
		Timestamp: time.Now().UTC(),
	})
}
