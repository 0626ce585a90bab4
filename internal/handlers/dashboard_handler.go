package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

func (h *DashboardHandler) GetOverview(c *gin.Context) {
	stats, err := h.dashboardService.GetOverview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) GetModuleStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	stats, err := h.dashboardService.GetModuleStats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) ListModuleStats(c *gin.Context) {
	stats, err := h.dashboardService.ListModuleStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetMyProgress is the staff self-view.
func (h *DashboardHandler) GetMyProgress(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	progress, err := h.dashboardService.GetUserProgress(c.Request.Context(), user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *DashboardHandler) GetUserProgress(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	progress, err := h.dashboardService.GetUserProgress(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetTeamProgress returns progress for the caller's direct reports.
// Admins can inspect any manager's team via the manager_id query.
func (h *DashboardHandler) GetTeamProgress(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	managerID := user.ID
	if raw := c.Query("manager_id"); raw != "" && user.Role.Name == models.RoleAdmin {
		if id := parseUintQuery(raw); id != 0 {
			managerID = id
		}
	}

	progress, err := h.dashboardService.GetTeamProgress(c.Request.Context(), managerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
