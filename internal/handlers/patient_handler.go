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

type PatientHandler struct {
	BaseHandler
	patientService services.PatientService
	validator      *validator.Validator
}

func NewPatientHandler(
	patientService services.PatientService,
	validator *validator.Validator,
	logger utils.Logger,
) *PatientHandler {
	return &PatientHandler{
		BaseHandler:    NewBaseHandler(logger),
		patientService: patientService,
		validator:      validator,
	}
}

// CreatePatient creates a new patient profile
// @Summary Create patient
// @Description Creates a patient profile owned by the calling caregiver
// @Tags patients
// @Accept json
// @Produce json
// @Param patient body services.CreatePatientRequest true "Patient data"
// @Success 201 {object} services.PatientResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /patients [post]
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req services.CreatePatientRequest
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

	h.LogRequest(c, "Creating patient", "name", req.Name)

	patient, err := h.patientService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, patient)
}

// GetPatient retrieves a patient by ID
// @Summary Get patient
// @Description Retrieves a patient profile by its ID
// @Tags patients
// @Produce json
// @Param id path uint true "Patient ID"
// @Success 200 {object} services.PatientResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /patients/{id} [get]
func (h *PatientHandler) GetPatient(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	patient, err := h.patientService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, patient)
}

// GetPatientWithDetails retrieves a patient with associations preloaded
// @Summary Get patient with details
// @Description Retrieves a patient with zones, medications and contacts
// @Tags patients
// @Produce json
// @Param id path uint true "Patient ID"
// @Success 200 {object} services.PatientResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /patients/{id}/details [get]
func (h *PatientHandler) GetPatientWithDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	patient, err := h.patientService.GetByIDWithDetails(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, patient)
}

// ListPatients lists patients visible to the caller
// @Summary List patients
// @Description Lists patients, scoped to the caller unless they are an admin
// @Tags patients
// @Produce json
// @Param search query string false "Search by name or code"
// @Param risk_status query string false "Filter by risk status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.PatientListResponse
// @Failure 401 {object} ErrorResponse
// @Router /patients [get]
func (h *PatientHandler) ListPatients(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := h.parsePatientFilters(c)

	h.LogRequest(c, "Listing patients")

	patients, err := h.patientService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, patients)
}

// UpdatePatient updates a patient profile
// @Summary Update patient
// @Description Updates a patient profile owned by the caller
// @Tags patients
// @Accept json
// @Produce json
// @Param id path uint true "Patient ID"
// @Param patient body services.UpdatePatientRequest true "Patient data"
// @Success 200 {object} services.PatientResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /patients/{id} [put]
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdatePatientRequest
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

	h.LogRequest(c, "Updating patient", "patient_id", id)

	patient, err := h.patientService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, patient)
}

// DeletePatient deletes a patient profile
// @Summary Delete patient
// @Description Deletes a patient profile without recorded incidents
// @Tags patients
// @Produce json
// @Param id path uint true "Patient ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /patients/{id} [delete]
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting patient", "patient_id", id)

	if err := h.patientService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Patient deleted",
		Timestamp: time.Now().UTC(),
	})
}

// GetPatientStats returns rolling statistics for a patient
// @Summary Patient statistics
// @Description Returns the rolling 30 day aggregates for a patient
// @Tags patients
// @Produce json
// @Param id path uint true "Patient ID"
// @Success 200 {object} repositories.PatientStats
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /patients/{id}/stats [get]
func (h *PatientHandler) GetPatientStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.patientService.GetStats(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *PatientHandler) parsePatientFilters(c *gin.Context) repositories.PatientFilters {
	filters := repositories.PatientFilters{
		Limit:     h.parseIntQuery(c, "limit", 20),
		Offset:    h.parseIntQuery(c, "offset", 0),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
		Search:    h.parseStringQueryPtr(c, "search"),
	}
	if status := c.Query("risk_status"); status != "" {
		rs := models.RiskStatus(status)
		filters.RiskStatus = &rs
	}
	return filters
}
