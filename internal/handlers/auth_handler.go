package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	validator   *validator.Validator
}

func NewAuthHandler(
	authService services.AuthService,
	validator *validator.Validator,
	logger utils.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		validator:   validator,
	}
}

// Signup registers a new caregiver account
// @Summary Register account
// @Description Registers a caregiver account and opens a session
// @Tags auth
// @Accept json
// @Produce json
// @Param account body services.SignupRequest true "Account data"
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Registering account", "username", req.Username)

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := establishSession(c, resp.User); err != nil {
		h.LogError(c, err, "Failed to establish session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to establish session",
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates an account and opens a session
// @Summary Log in
// @Description Verifies credentials and opens a session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginRequest true "Credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Logging in", "username", req.Username)

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := establishSession(c, resp.User); err != nil {
		h.LogError(c, err, "Failed to establish session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to establish session",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout closes the current session
// @Summary Log out
// @Description Clears the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := clearSession(c); err != nil {
		h.LogError(c, err, "Failed to clear session")
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Logged out",
		Timestamp: time.Now().UTC(),
	})
}

// ChangePassword rotates the caller's password
// @Summary Change password
// @Description Verifies the current password and stores a new one
// @Tags auth
// @Accept json
// @Produce json
// @Param passwords body services.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Password changed",
		Timestamp: time.Now().UTC(),
	})
}

// GetProfile returns the authenticated account
// @Summary Current account
// @Description Returns the account attached to the session
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
