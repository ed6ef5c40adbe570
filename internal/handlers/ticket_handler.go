package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type TicketHandler struct {
	BaseHandler
	ticketService services.TicketService
	validator     *validator.Validator
}

func NewTicketHandler(
	ticketService services.TicketService,
	validator *validator.Validator,
	logger utils.Logger,
) *TicketHandler {
	return &TicketHandler{
		BaseHandler:   NewBaseHandler(logger),
		ticketService: ticketService,
		validator:     validator,
	}
}

// CreateTicket files a support ticket
// @Summary File ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Param ticket body services.CreateTicketRequest true "Ticket data"
// @Success 201 {object} models.SupportTicket
// @Failure 400 {object} ErrorResponse
// @Router /tickets [post]
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req services.CreateTicketRequest
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

	h.LogRequest(c, "Filing support ticket", "subject", req.Subject)

	ticket, err := h.ticketService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// GetTicket retrieves a ticket, owners and admins only
// @Summary Get ticket
// @Tags tickets
// @Produce json
// @Param id path uint true "Ticket ID"
// @Success 200 {object} models.SupportTicket
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{id} [get]
func (h *TicketHandler) GetTicket(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	ticket, err := h.ticketService.GetByID(c.Request.Context(), id, userID, h.currentRole(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ListTickets lists tickets visible to the caller
// @Summary List tickets
// @Description Lists the caller's tickets, admins see every ticket
// @Tags tickets
// @Produce json
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Success 200 {object} services.TicketListResponse
// @Failure 401 {object} ErrorResponse
// @Router /tickets [get]
func (h *TicketHandler) ListTickets(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := repositories.TicketFilters{
		Status:   h.parseStringQueryPtr(c, "status"),
		Priority: h.parseStringQueryPtr(c, "priority"),
		Limit:    h.parseIntQuery(c, "limit", 20),
		Offset:   h.parseIntQuery(c, "offset", 0),
	}

	tickets, err := h.ticketService.List(c.Request.Context(), filters, userID, h.currentRole(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// UpdateTicket handles a ticket, admins only
// @Summary Update ticket
// @Description Assigns, responds to or closes a support ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path uint true "Ticket ID"
// @Param ticket body services.UpdateTicketRequest true "Ticket update"
// @Success 200 {object} models.SupportTicket
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{id} [put]
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTicketRequest
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

	h.LogRequest(c, "Updating support ticket", "ticket_id", id)

	ticket, err := h.ticketService.Update(c.Request.Context(), id, &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// DeleteTicket deletes a ticket, admins only
// @Summary Delete ticket
// @Tags tickets
// @Produce json
// @Param id path uint true "Ticket ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{id} [delete]
func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting support ticket", "ticket_id", id)

	if err := h.ticketService.Delete(c.Request.Context(), id, adminID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Ticket deleted",
		Timestamp: time.Now().UTC(),
	})
}
