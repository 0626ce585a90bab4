package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type ModuleHandler struct {
	BaseHandler
	moduleService services.ModuleService
}

func NewModuleHandler(moduleService services.ModuleService, logger utils.Logger) *ModuleHandler {
	return &ModuleHandler{
		BaseHandler:   NewBaseHandler(logger),
		moduleService: moduleService,
	}
}

func (h *ModuleHandler) CreateModule(c *gin.Context) {
	var req services.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating module", "title", req.Title)

	module, err := h.moduleService.Create(c.Request.Context(), &req, actor.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, module)
}

func (h *ModuleHandler) GetModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	module, err := h.moduleService.GetByID(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, module)
}

func (h *ModuleHandler) UpdateModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating module", "module_id", id)

	module, err := h.moduleService.Update(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, module)
}

func (h *ModuleHandler) ListModules(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := repositories.ModuleFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	filters.Limit, filters.Offset = parsePagination(c)

	if raw := c.Query("status"); raw != "" {
		status := models.ModuleStatus(raw)
		filters.Status = &status
	}

	result, err := h.moduleService.List(c.Request.Context(), filters, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PublishModule publishes a draft and triggers assignment fan-out.
func (h *ModuleHandler) PublishModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Publishing module", "module_id", id)

	result, err := h.moduleService.Publish(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ModuleHandler) RetireModule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Retiring module", "module_id", id)

	if err := h.moduleService.Retire(c.Request.Context(), id, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Module retired"})
}

func (h *ModuleHandler) ListPaths(c *gin.Context) {
	paths, err := h.moduleService.ListPaths(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, paths)
}
