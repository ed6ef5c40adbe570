package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type PredictionHandler struct {
	BaseHandler
	predictionService services.PredictionService
	validator         *validator.Validator
}

func NewPredictionHandler(
	predictionService services.PredictionService,
	validator *validator.Validator,
	logger utils.Logger,
) *PredictionHandler {
	return &PredictionHandler{
		BaseHandler:       NewBaseHandler(logger),
		predictionService: predictionService,
		validator:         validator,
	}
}

// PredictPatient computes a fresh risk assessment for one patient
// @Summary Predict patient risk
// @Description Computes and persists a risk assessment for the patient
// @Tags predictions
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Success 200 {object} services.RiskAssessment
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /predictions/patient/{patient_id} [post]
func (h *PredictionHandler) PredictPatient(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Predicting patient risk", "patient_id", patientID)

	assessment, err := h.predictionService.Predict(c.Request.Context(), patientID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetLatestPrediction returns the most recent assessment for a patient
// @Summary Latest patient risk
// @Tags predictions
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Success 200 {object} services.RiskAssessment
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /predictions/patient/{patient_id} [get]
func (h *PredictionHandler) GetLatestPrediction(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	assessment, err := h.predictionService.GetLatest(c.Request.Context(), patientID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetPredictionHistory lists past assessments for a patient
// @Summary Patient risk history
// @Tags predictions
// @Produce json
// @Param patient_id path uint true "Patient ID"
// @Param limit query int false "Max results, defaults to 20"
// @Success 200 {array} models.PredictionResult
// @Failure 403 {object} ErrorResponse
// @Router /predictions/patient/{patient_id}/history [get]
func (h *PredictionHandler) GetPredictionHistory(c *gin.Context) {
	patientID := h.parseIDParam(c, "patient_id")
	if patientID == 0 {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	limit := h.parseIntQuery(c, "limit", 20)

	history, err := h.predictionService.GetHistory(c.Request.Context(), patientID, limit, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// RunAnalysis scores the whole patient population in one batch job
// @Summary Run batch analysis
// @Description Starts a batch prediction run over every patient
// @Tags predictions
// @Produce json
// @Success 200 {object} services.AnalysisRunResult
// @Failure 409 {object} ErrorResponse
// @Router /predictions/run [post]
func (h *PredictionHandler) RunAnalysis(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}

	h.LogRequest(c, "Running batch risk analysis")

	result, err := h.predictionService.RunAnalysis(c.Request.Context(), "manual")
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetJob retrieves one batch analysis job
// @Summary Get analysis job
// @Tags predictions
// @Produce json
// @Param id path uint true "Job ID"
// @Success 200 {object} models.PredictionJob
// @Failure 404 {object} ErrorResponse
// @Router /predictions/jobs/{id} [get]
func (h *PredictionHandler) GetJob(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	job, err := h.predictionService.GetJob(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs lists past batch analysis jobs
// @Summary List analysis jobs
// @Tags predictions
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Router /predictions/jobs [get]
func (h *PredictionHandler) ListJobs(c *gin.Context) {
	limit := h.parseIntQuery(c, "limit", 20)
	offset := h.parseIntQuery(c, "offset", 0)

	jobs, total, err := h.predictionService.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": total})
}
