package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
	validator        *validator.Validator
}

func NewDashboardHandler(
	dashboardService services.DashboardService,
	validator *validator.Validator,
	logger utils.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
		validator:        validator,
	}
}

// GetOverview returns the admin dashboard payload
// @Summary Dashboard overview
// @Description Returns population counts, risk breakdown and incident trend
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardOverview
// @Failure 403 {object} ErrorResponse
// @Router /dashboard/overview [get]
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard overview")

	overview, err := h.dashboardService.GetOverview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetCaregiverStats returns the calling caregiver's summary numbers
// @Summary Caregiver statistics
// @Tags dashboard
// @Produce json
// @Success 200 {object} repositories.CaregiverStats
// @Failure 401 {object} ErrorResponse
// @Router /dashboard/me [get]
func (h *DashboardHandler) GetCaregiverStats(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.GetCaregiverStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportIncidents streams the incident analytics workbook
// @Summary Export incidents
// @Description Builds an XLSX workbook covering the requested date range
// @Tags dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "Start of range (RFC3339 or YYYY-MM-DD), defaults to 30 days ago"
// @Param to query string false "End of range, defaults to now"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /dashboard/export [get]
func (h *DashboardHandler) ExportIncidents(c *gin.Context) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if t := h.parseTimeQueryPtr(c, "from"); t != nil {
		from = *t
	}
	if t := h.parseTimeQueryPtr(c, "to"); t != nil {
		to = *t
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid date range",
			Details: "to must not be before from",
		})
		return
	}

	h.LogRequest(c, "Exporting incident workbook", "from", from, "to", to)

	workbook, err := h.dashboardService.ExportIncidents(c.Request.Context(), from, to)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("incidents_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		workbook)
}
