package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type TrainingHandler struct {
	BaseHandler
	trainingService services.TrainingService
	validator       *validator.Validator
}

func NewTrainingHandler(
	trainingService services.TrainingService,
	validator *validator.Validator,
	logger utils.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		BaseHandler:     NewBaseHandler(logger),
		trainingService: trainingService,
		validator:       validator,
	}
}

// CreateModule publishes a training module
// @Summary Create training module
// @Tags training
// @Accept json
// @Produce json
// @Param module body services.CreateModuleRequest true "Module data"
// @Success 201 {object} models.TrainingModule
// @Failure 400 {object} ErrorResponse
// @Router /training/modules [post]
func (h *TrainingHandler) CreateModule(c *gin.Context) {
	var req services.CreateModuleRequest
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

	h.LogRequest(c, "Creating training module", "title", req.Title)

	module, err := h.trainingService.CreateModule(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, module)
}

// GetModule retrieves a training module by ID
// @Summary Get training module
// @Tags training
// @Produce json
// @Param id path uint true "Module ID"
// @Success 200 {object} models.TrainingModule
// @Failure 404 {object} ErrorResponse
// @Router /training/modules/{id} [get]
func (h *TrainingHandler) GetModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	module, err := h.trainingService.GetModule(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, module)
}

// UpdateModule updates a training module
// @Summary Update training module
// @Tags training
// @Accept json
// @Produce json
// @Param id path uint true "Module ID"
// @Param module body services.CreateModuleRequest true "Module data"
// @Success 200 {object} models.TrainingModule
// @Failure 404 {object} ErrorResponse
// @Router /training/modules/{id} [put]
func (h *TrainingHandler) UpdateModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.CreateModuleRequest
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

	h.LogRequest(c, "Updating training module", "module_id", id)

	module, err := h.trainingService.UpdateModule(c.Request.Context(), id, &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, module)
}

// DeleteModule deletes a training module
// @Summary Delete training module
// @Tags training
// @Produce json
// @Param id path uint true "Module ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /training/modules/{id} [delete]
func (h *TrainingHandler) DeleteModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting training module", "module_id", id)

	if err := h.trainingService.DeleteModule(c.Request.Context(), id, adminID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Module deleted",
		Timestamp: time.Now().UTC(),
	})
}

// ListModules lists training modules
// @Summary List training modules
// @Description Lists published modules, admins may include unpublished ones
// @Tags training
// @Produce json
// @Param include_unpublished query bool false "Include unpublished modules (admin only)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.ModuleListResponse
// @Router /training/modules [get]
func (h *TrainingHandler) ListModules(c *gin.Context) {
	limit := h.parseIntQuery(c, "limit", 20)
	offset := h.parseIntQuery(c, "offset", 0)

	includeUnpublished := false
	if v := h.parseBoolQueryPtr(c, "include_unpublished"); v != nil && *v {
		includeUnpublished = h.currentRole(c) == models.RoleAdmin
	}

	modules, err := h.trainingService.ListModules(c.Request.Context(), includeUnpublished, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, modules)
}

// UpdateProgress records the caller's progress on a module
// @Summary Update training progress
// @Description Records progress, completion percentage never decreases
// @Tags training
// @Accept json
// @Produce json
// @Param id path uint true "Module ID"
// @Param progress body services.UpdateProgressRequest true "Progress data"
// @Success 200 {object} services.ProgressResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /training/modules/{id}/progress [put]
func (h *TrainingHandler) UpdateProgress(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateProgressRequest
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

	h.LogRequest(c, "Updating training progress", "module_id", id, "percent", req.Percent)

	progress, err := h.trainingService.UpdateProgress(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// SubmitQuiz records the caller's quiz score for a module
// @Summary Submit quiz score
// @Description Stores the score, keeping the best result per module
// @Tags training
// @Accept json
// @Produce json
// @Param id path uint true "Module ID"
// @Param quiz body services.SubmitQuizRequest true "Quiz result"
// @Success 200 {object} services.ProgressResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /training/modules/{id}/quiz [post]
func (h *TrainingHandler) SubmitQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitQuizRequest
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

	h.LogRequest(c, "Submitting quiz score", "module_id", id, "score", req.Score)

	progress, err := h.trainingService.SubmitQuiz(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetCompletionStats reports per-module completion aggregates
// @Summary Training completion stats
// @Tags admin
// @Produce json
// @Success 200 {array} repositories.ModuleCompletionStats
// @Failure 403 {object} ErrorResponse
// @Router /admin/training/stats [get]
func (h *TrainingHandler) GetCompletionStats(c *gin.Context) {
	stats, err := h.trainingService.GetCompletionStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUserProgress lists the caller's progress across modules
// @Summary My training progress
// @Tags training
// @Produce json
// @Success 200 {array} models.TrainingProgress
// @Failure 401 {object} ErrorResponse
// @Router /training/progress [get]
func (h *TrainingHandler) GetUserProgress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	progress, err := h.trainingService.GetUserProgress(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
