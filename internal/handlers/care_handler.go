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

type CareHandler struct {
	BaseHandler
	careService services.CareService
	validator   *validator.Validator
}

func NewCareHandler(
	careService services.CareService,
	validator *validator.Validator,
	logger utils.Logger,
) *CareHandler {
	return &CareHandler{
		BaseHandler: NewBaseHandler(logger),
		careService: careService,
		validator:   validator,
	}
}

// ===== MEDICATIONS =====

// CreateMedication adds a medication to a patient's regimen
// @Summary Add medication
// @Tags care
// @Accept json
// @Produce json
// @Param medication body services.CreateMedicationRequest true "Medication data"
// @Success 201 {object} models.Medication
// @Failure 403 {object} ErrorResponse
// @Router /medications [post]
func (h *CareHandler) CreateMedication(c *gin.Context) {
	var req services.CreateMedicationRequest
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

	h.LogRequest(c, "Adding medication", "patient_ref", req.PatientRef, "name", req.Name)

	medication, err := h.careService.CreateMedication(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, medication)
}

// GetMedications lists a patient's medications
// @Summary List medications
// @Tags care
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Param active query bool false "Only active medications"
// @Success 200 {array} models.Medication
// @Failure 403 {object} ErrorResponse
// @Router /medications/patient/{patient_id} [get]
func (h *CareHandler) GetMedications(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	activeOnly := false
	if v := h.parseBoolQueryPtr(c, "active"); v != nil {
		activeOnly = *v
	}

	medications, err := h.careService.GetMedications(c.Request.Context(), patientID, activeOnly, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, medications)
}

// UpdateMedication updates a medication
// @Summary Update medication
// @Tags care
// @Accept json
// @Produce json
// @Param id path uint true "Medication ID"
// @Param medication body services.CreateMedicationRequest true "Medication data"
// @Success 200 {object} models.Medication
// @Failure 404 {object} ErrorResponse
// @Router /medications/{id} [put]
func (h *CareHandler) UpdateMedication(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.CreateMedicationRequest
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

	h.LogRequest(c, "Updating medication", "medication_id", id)

	medication, err := h.careService.UpdateMedication(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, medication)
}

// DeleteMedication removes a medication
// @Summary Delete medication
// @Tags care
// @Produce json
// @Param id path uint true "Medication ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /medications/{id} [delete]
func (h *CareHandler) DeleteMedication(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting medication", "medication_id", id)

	if err := h.careService.DeleteMedication(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Medication deleted",
		Timestamp: time.Now().UTC(),
	})
}

// LogMedication records a dose administration
// @Summary Log medication dose
// @Description Records a dose, missed doses raise a low severity incident
// @Tags care
// @Accept json
// @Produce json
// @Param id path uint true "Medication ID"
// @Param log body services.LogMedicationRequest true "Dose log"
// @Success 201 {object} models.MedicationLog
// @Failure 404 {object} ErrorResponse
// @Router /medications/{id}/log [post]
func (h *CareHandler) LogMedication(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.LogMedicationRequest
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

	h.LogRequest(c, "Logging medication dose", "medication_id", id, "status", req.Status)

	log, err := h.careService.LogMedication(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, log)
}

// GetAdherence returns a patient's medication adherence rate
// @Summary Medication adherence
// @Tags care
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Param days query int false "Window in days, defaults to 30"
// @Success 200 {object} map[string]float64
// @Failure 403 {object} ErrorResponse
// @Router /medications/patient/{patient_id}/adherence [get]
func (h *CareHandler) GetAdherence(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	days := h.parseIntQuery(c, "days", 30)

	rate, err := h.careService.GetAdherence(c.Request.Context(), patientID, days, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"adherence_rate": rate, "days": days})
}

// ===== CARE PLANS =====

// CreateCarePlan creates a care plan with optional tasks
// @Summary Create care plan
// @Tags care
// @Accept json
// @Produce json
// @Param plan body services.CreateCarePlanRequest true "Care plan data"
// @Success 201 {object} models.CarePlan
// @Failure 403 {object} ErrorResponse
// @Router /care-plans [post]
func (h *CareHandler) CreateCarePlan(c *gin.Context) {
	var req services.CreateCarePlanRequest
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

	h.LogRequest(c, "Creating care plan", "patient_ref", req.PatientRef, "title", req.Title)

	plan, err := h.careService.CreateCarePlan(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetCarePlans lists a patient's care plans
// @Summary List care plans
// @Tags care
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Success 200 {array} models.CarePlan
// @Failure 403 {object} ErrorResponse
// @Router /care-plans/patient/{patient_id} [get]
func (h *CareHandler) GetCarePlans(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	plans, err := h.careService.GetCarePlans(c.Request.Context(), patientID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// UpdateCarePlanStatus moves a care plan through its lifecycle
// @Summary Update care plan status
// @Tags care
// @Accept json
// @Produce json
// @Param id path uint true "Care plan ID"
// @Param status body object true "New status"
// @Success 200 {object} models.CarePlan
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /care-plans/{id}/status [put]
func (h *CareHandler) UpdateCarePlanStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
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

	h.LogRequest(c, "Updating care plan status", "plan_id", id, "status", req.Status)

	plan, err := h.careService.UpdateCarePlanStatus(c.Request.Context(), id, req.Status, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// DeleteCarePlan deletes a care plan
// @Summary Delete care plan
// @Tags care
// @Produce json
// @Param id path uint true "Care plan ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /care-plans/{id} [delete]
func (h *CareHandler) DeleteCarePlan(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting care plan", "plan_id", id)

	if err := h.careService.DeleteCarePlan(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Care plan deleted",
		Timestamp: time.Now().UTC(),
	})
}

// AddTask adds a task to a care plan
// @Summary Add care plan task
// @Tags care
// @Accept json
// @Produce json
// @Param id path uint true "Care plan ID"
// @Param task body services.CarePlanTaskRequest true "Task data"
// @Success 201 {object} models.CarePlanTask
// @Failure 404 {object} ErrorResponse
// @Router /care-plans/{id}/tasks [post]
func (h *CareHandler) AddTask(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.CarePlanTaskRequest
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

	task, err := h.careService.AddTask(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// CompleteTask marks a care plan task done
// @Summary Complete care plan task
// @Tags care
// @Produce json
// @Param task_id path uint true "Task ID"
// @Success 200 {object} models.CarePlanTask
// @Failure 404 {object} ErrorResponse
// @Router /care-plans/tasks/{task_id}/complete [put]
func (h *CareHandler) CompleteTask(c *gin.Context) {
	taskID := h.parseIDParam(c, "task_id")
	if taskID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	task, err := h.careService.CompleteTask(c.Request.Context(), taskID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a care plan task
// @Summary Delete care plan task
// @Tags care
// @Produce json
// @Param task_id path uint true "Task ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /care-plans/tasks/{task_id} [delete]
func (h *CareHandler) DeleteTask(c *gin.Context) {
	taskID := h.parseIDParam(c, "task_id")
	if taskID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.careService.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Task deleted",
		Timestamp: time.Now().UTC(),
	})
}

// ===== EMERGENCY CONTACTS =====

// CreateContact adds an emergency contact
// @Summary Add emergency contact
// @Tags emergency
// @Accept json
// @Produce json
// @Param contact body services.CreateContactRequest true "Contact data"
// @Success 201 {object} models.EmergencyContact
// @Failure 403 {object} ErrorResponse
// @Router /emergency/contacts [post]
func (h *CareHandler) CreateContact(c *gin.Context) {
	var req services.CreateContactRequest
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

	h.LogRequest(c, "Adding emergency contact", "patient_ref", req.PatientRef)

	contact, err := h.careService.CreateContact(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// GetContacts lists a patient's emergency contacts
// @Summary List emergency contacts
// @Tags emergency
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Success 200 {array} models.EmergencyContact
// @Failure 403 {object} ErrorResponse
// @Router /emergency/contacts/patient/{patient_id} [get]
func (h *CareHandler) GetContacts(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	contacts, err := h.careService.GetContacts(c.Request.Context(), patientID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// UpdateContact updates an emergency contact
// @Summary Update emergency contact
// @Tags emergency
// @Accept json
// @Produce json
// @Param id path uint true "Contact ID"
// @Param contact body services.CreateContactRequest true "Contact data"
// @Success 200 {object} models.EmergencyContact
// @Failure 404 {object} ErrorResponse
// @Router /emergency/contacts/{id} [put]
func (h *CareHandler) UpdateContact(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.CreateContactRequest
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

	contact, err := h.careService.UpdateContact(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

// DeleteContact removes an emergency contact
// @Summary Delete emergency contact
// @Tags emergency
// @Produce json
// @Param id path uint true "Contact ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /emergency/contacts/{id} [delete]
func (h *CareHandler) DeleteContact(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.careService.DeleteContact(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Contact deleted",
		Timestamp: time.Now().UTC(),
	})
}

// ===== EMERGENCY ALERTS =====

// RaiseAlert raises a manual emergency alert
// @Summary Raise alert
// @Tags emergency
// @Accept json
// @Produce json
// @Param alert body services.RaiseAlertRequest true "Alert data"
// @Success 201 {object} models.EmergencyAlert
// @Failure 403 {object} ErrorResponse
// @Router /emergency/alerts [post]
func (h *CareHandler) RaiseAlert(c *gin.Context) {
	var req services.RaiseAlertRequest
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

	h.LogRequest(c, "Raising emergency alert", "patient_ref", req.PatientRef)

	alert, err := h.careService.RaiseAlert(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// AcknowledgeAlert acknowledges an active alert
// @Summary Acknowledge alert
// @Tags emergency
// @Produce json
// @Param id path uint true "Alert ID"
// @Success 200 {object} models.EmergencyAlert
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /emergency/alerts/{id}/acknowledge [put]
func (h *CareHandler) AcknowledgeAlert(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	alert, err := h.careService.AcknowledgeAlert(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ResolveAlert resolves an alert
// @Summary Resolve alert
// @Tags emergency
// @Produce json
// @Param id path uint true "Alert ID"
// @Success 200 {object} models.EmergencyAlert
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /emergency/alerts/{id}/resolve [put]
func (h *CareHandler) ResolveAlert(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Resolving alert", "alert_id", id)

	alert, err := h.careService.ResolveAlert(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ListAlerts lists alerts visible to the caller
// @Summary List alerts
// @Tags emergency
// @Produce json
// @Param patient_ref query uint false "Filter by patient"
// @Param status query string false "Filter by status"
// @Param trigger query string false "Filter by trigger kind"
// @Success 200 {object} services.AlertListResponse
// @Failure 401 {object} ErrorResponse
// @Router /emergency/alerts [get]
func (h *CareHandler) ListAlerts(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := repositories.AlertFilters{
		PatientRef: h.parseUintQueryPtr(c, "patient_ref"),
		Status:     h.parseStringQueryPtr(c, "status"),
		Trigger:    h.parseStringQueryPtr(c, "trigger"),
		Limit:      h.parseIntQuery(c, "limit", 20),
		Offset:     h.parseIntQuery(c, "offset", 0),
	}

	alerts, err := h.careService.ListAlerts(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}
