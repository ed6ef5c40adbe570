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

type IncidentHandler struct {
	BaseHandler
	incidentService services.IncidentService
	validator       *validator.Validator
}

func NewIncidentHandler(
	incidentService services.IncidentService,
	validator *validator.Validator,
	logger utils.Logger,
) *IncidentHandler {
	return &IncidentHandler{
		BaseHandler:     NewBaseHandler(logger),
		incidentService: incidentService,
		validator:       validator,
	}
}

// CreateIncident records a new incident
// @Summary Record incident
// @Description Records an incident for a patient the caller can access
// @Tags incidents
// @Accept json
// @Produce json
// @Param incident body services.CreateIncidentRequest true "Incident data"
// @Success 201 {object} models.Incident
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /incidents [post]
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req services.CreateIncidentRequest
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

	h.LogRequest(c, "Recording incident", "patient_ref", req.PatientRef, "type", req.Type)

	incident, err := h.incidentService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, incident)
}

// GetIncident retrieves an incident by ID
// @Summary Get incident
// @Description Retrieves an incident the caller can access
// @Tags incidents
// @Produce json
// @Param id path uint true "Incident ID"
// @Success 200 {object} models.Incident
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /incidents/{id} [get]
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	incident, err := h.incidentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

// ListIncidents lists incidents visible to the caller
// @Summary List incidents
// @Description Lists incidents, scoped to the caller's patients unless they are an admin
// @Tags incidents
// @Produce json
// @Param patient_ref query uint false "Filter by patient"
// @Param type query string false "Filter by type"
// @Param severity query string false "Filter by severity"
// @Param status query string false "Filter by status"
// @Param date_from query string false "Start of date range (RFC3339)"
// @Param date_to query string false "End of date range (RFC3339)"
// @Success 200 {object} services.IncidentListResponse
// @Failure 401 {object} ErrorResponse
// @Router /incidents [get]
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := h.parseIncidentFilters(c)

	h.LogRequest(c, "Listing incidents")

	incidents, err := h.incidentService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incidents)
}

// ResolveIncident closes an open incident
// @Summary Resolve incident
// @Description Marks an open incident as resolved with optional notes
// @Tags incidents
// @Accept json
// @Produce json
// @Param id path uint true "Incident ID"
// @Param resolution body services.ResolveIncidentRequest true "Resolution data"
// @Success 200 {object} models.Incident
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /incidents/{id}/resolve [put]
func (h *IncidentHandler) ResolveIncident(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ResolveIncidentRequest
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

	h.LogRequest(c, "Resolving incident", "incident_id", id)

	incident, err := h.incidentService.Resolve(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

// DeleteIncident deletes an incident
// @Summary Delete incident
// @Description Deletes an incident the caller can access
// @Tags incidents
// @Produce json
// @Param id path uint true "Incident ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /incidents/{id} [delete]
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting incident", "incident_id", id)

	if err := h.incidentService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Incident deleted",
		Timestamp: time.Now().UTC(),
	})
}

// StartSession opens a live seizure session
// @Summary Start seizure session
// @Description Opens a live seizure session for a patient, one at a time
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session data"
// @Success 201 {object} models.SeizureSession
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/start [post]
func (h *IncidentHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
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

	h.LogRequest(c, "Starting seizure session", "patient_ref", req.PatientRef)

	session, err := h.incidentService.StartSession(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// EndSession closes a live seizure session
// @Summary End seizure session
// @Description Closes a live session and records the derived incident
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param session body services.EndSessionRequest true "Session outcome"
// @Success 200 {object} models.SeizureSession
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /sessions/{id}/end [post]
func (h *IncidentHandler) EndSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.EndSessionRequest
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

	h.LogRequest(c, "Ending seizure session", "session_id", id)

	session, err := h.incidentService.EndSession(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetActiveSession returns the patient's live session if one exists
// @Summary Active seizure session
// @Description Returns the currently open session for a patient
// @Tags sessions
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Success 200 {object} models.SeizureSession
// @Failure 404 {object} ErrorResponse
// @Router /sessions/active/{patient_id} [get]
func (h *IncidentHandler) GetActiveSession(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	session, err := h.incidentService.GetActiveSession(c.Request.Context(), patientID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetSessions lists a patient's seizure sessions
// @Summary List seizure sessions
// @Description Lists the seizure session history for a patient
// @Tags sessions
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.SessionListResponse
// @Failure 403 {object} ErrorResponse
// @Router /sessions/patient/{patient_id} [get]
func (h *IncidentHandler) GetSessions(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	limit := h.parseIntQuery(c, "limit", 20)
	offset := h.parseIntQuery(c, "offset", 0)

	sessions, err := h.incidentService.GetSessions(c.Request.Context(), patientID, limit, offset, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (h *IncidentHandler) parseIncidentFilters(c *gin.Context) repositories.IncidentFilters {
	return repositories.IncidentFilters{
		PatientRef: h.parseUintQueryPtr(c, "patient_ref"),
		Type:       h.parseStringQueryPtr(c, "type"),
		Severity:   h.parseStringQueryPtr(c, "severity"),
		Status:     h.parseStringQueryPtr(c, "status"),
		DateFrom:   h.parseTimeQueryPtr(c, "date_from"),
		DateTo:     h.parseTimeQueryPtr(c, "date_to"),
		Limit:      h.parseIntQuery(c, "limit", 20),
		Offset:     h.parseIntQuery(c, "offset", 0),
		SortBy:     c.DefaultQuery("sort_by", "occurred_at"),
		SortOrder:  c.DefaultQuery("sort_order", "desc"),
	}
}
