package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type AssistantHandler struct {
	BaseHandler
	assistantService services.AssistantService
	validator        *validator.Validator
}

func NewAssistantHandler(
	assistantService services.AssistantService,
	validator *validator.Validator,
	logger utils.Logger,
) *AssistantHandler {
	return &AssistantHandler{
		BaseHandler:      NewBaseHandler(logger),
		assistantService: assistantService,
		validator:        validator,
	}
}

// Chat answers a caregiver question, with patient context when permitted
// @Summary Chat with assistant
// @Description Sends a message to the care assistant
// @Tags assistant
// @Accept json
// @Produce json
// @Param chat body services.ChatRequest true "Chat message"
// @Success 200 {object} services.ChatResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	role := h.currentRole(c)

	h.LogRequest(c, "Assistant chat")

	resp, err := h.assistantService.Chat(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status reports whether the assistant is configured
// @Summary Assistant status
// @Tags assistant
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /assistant/status [get]
func (h *AssistantHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.assistantService.Enabled()})
}
