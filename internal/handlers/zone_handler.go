package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type ZoneHandler struct {
	BaseHandler
	zoneService services.ZoneService
	validator   *validator.Validator
}

func NewZoneHandler(
	zoneService services.ZoneService,
	validator *validator.Validator,
	logger utils.Logger,
) *ZoneHandler {
	return &ZoneHandler{
		BaseHandler: NewBaseHandler(logger),
		zoneService: zoneService,
		validator:   validator,
	}
}

// CreateZone creates a safety zone
// @Summary Create safety zone
// @Description Creates a zone, danger zones start pending admin approval
// @Tags zones
// @Accept json
// @Produce json
// @Param zone body services.CreateZoneRequest true "Zone data"
// @Success 201 {object} models.SafetyZone
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /zones [post]
func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var req services.CreateZoneRequest
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

	h.LogRequest(c, "Creating safety zone", "patient_ref", req.PatientRef, "type", req.Type)

	zone, err := h.zoneService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, zone)
}

// GetZone retrieves a safety zone by ID
// @Summary Get safety zone
// @Tags zones
// @Produce json
// @Param id path uint true "Zone ID"
// @Success 200 {object} models.SafetyZone
// @Failure 404 {object} ErrorResponse
// @Router /zones/{id} [get]
func (h *ZoneHandler) GetZone(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	zone, err := h.zoneService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zone)
}

// GetZonesByPatient lists a patient's safety zones
// @Summary List patient zones
// @Tags zones
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Success 200 {array} models.SafetyZone
// @Failure 403 {object} ErrorResponse
// @Router /zones/patient/{patient_id} [get]
func (h *ZoneHandler) GetZonesByPatient(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	zones, err := h.zoneService.GetByPatient(c.Request.Context(), patientID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zones)
}

// UpdateZone updates a safety zone
// @Summary Update safety zone
// @Description Updates a zone, geometry changes reset danger zone approval
// @Tags zones
// @Accept json
// @Produce json
// @Param id path uint true "Zone ID"
// @Param zone body services.UpdateZoneRequest true "Zone data"
// @Success 200 {object} models.SafetyZone
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /zones/{id} [put]
func (h *ZoneHandler) UpdateZone(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateZoneRequest
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

	h.LogRequest(c, "Updating safety zone", "zone_id", id)

	zone, err := h.zoneService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zone)
}

// DeleteZone deletes a safety zone
// @Summary Delete safety zone
// @Tags zones
// @Produce json
// @Param id path uint true "Zone ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /zones/{id} [delete]
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting safety zone", "zone_id", id)

	if err := h.zoneService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Zone deleted",
		Timestamp: time.Now().UTC(),
	})
}

// ListPendingZones lists danger zones awaiting approval
// @Summary List pending zones
// @Description Lists danger zones waiting for admin review
// @Tags zones
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.ZoneListResponse
// @Failure 403 {object} ErrorResponse
// @Router /zones/pending [get]
func (h *ZoneHandler) ListPendingZones(c *gin.Context) {
	limit := h.parseIntQuery(c, "limit", 20)
	offset := h.parseIntQuery(c, "offset", 0)

	h.LogRequest(c, "Listing pending zones")

	zones, err := h.zoneService.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zones)
}

// ApproveZone approves a pending danger zone
// @Summary Approve zone
// @Tags zones
// @Produce json
// @Param id path uint true "Zone ID"
// @Success 200 {object} models.SafetyZone
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /zones/{id}/approve [put]
func (h *ZoneHandler) ApproveZone(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Approving zone", "zone_id", id)

	zone, err := h.zoneService.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zone)
}

// RejectZone rejects a pending danger zone
// @Summary Reject zone
// @Tags zones
// @Accept json
// @Produce json
// @Param id path uint true "Zone ID"
// @Param rejection body object true "Rejection note"
// @Success 200 {object} models.SafetyZone
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /zones/{id}/reject [put]
func (h *ZoneHandler) RejectZone(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req struct {
		Note string `json:"note"`
	}
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

	h.LogRequest(c, "Rejecting zone", "zone_id", id)

	zone, err := h.zoneService.Reject(c.Request.Context(), id, req.Note, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zone)
}

// CheckLocation tests a GPS fix against a patient's enforced zones
// @Summary Check location
// @Description Tests a GPS fix and raises an alert when the patient breached
// @Tags zones
// @Accept json
// @Produce json
// @Param location body services.LocationCheckRequest true "GPS fix"
// @Success 200 {object} services.LocationCheckResult
// @Failure 403 {object} ErrorResponse
// @Router /zones/check [post]
func (h *ZoneHandler) CheckLocation(c *gin.Context) {
	var req services.LocationCheckRequest
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

	result, err := h.zoneService.CheckLocation(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
