package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
	evaluationService services.EvaluationService
}

func NewAssignmentHandler(assignmentService services.AssignmentService, evaluationService services.EvaluationService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
		evaluationService: evaluationService,
	}
}

// ListMyAssignments returns the caller's own assignment list.
func (h *AssignmentHandler) ListMyAssignments(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AssignmentHandler) GetMyAssignment(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	result, err := h.assignmentService.GetForUser(c.Request.Context(), user.ID, moduleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitQuiz scores the caller's full answer set for a module.
func (h *AssignmentHandler) SubmitQuiz(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	var req services.QuizSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting quiz", "module_id", moduleID, "answers", len(req.Answers))

	result, err := h.evaluationService.Submit(c.Request.Context(), user.ID, moduleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveQuiz stores partial progress without scoring.
func (h *AssignmentHandler) SaveQuiz(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	var req services.QuizSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.evaluationService.Save(c.Request.Context(), user.ID, moduleID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Progress saved"})
}

// ListAssignments is the admin/manager view across all users.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	filters := repositories.AssignmentFilters{}
	filters.Limit, filters.Offset = parsePagination(c)

	if raw := c.Query("status"); raw != "" {
		status := models.AssignmentStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("user_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			userID := uint(id)
			filters.UserID = &userID
		}
	}
	if raw := c.Query("module_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			moduleID := uint(id)
			filters.ModuleID = &moduleID
		}
	}

	result, err := h.assignmentService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BackfillAssignments re-runs fan-out for one module, picking up users
// created since it was published.
func (h *AssignmentHandler) BackfillAssignments(c *gin.Context) {
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	h.LogRequest(c, "Backfilling assignments", "module_id", moduleID)

	result, err := h.assignmentService.Fanout(c.Request.Context(), moduleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
