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

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
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

	h.LogRequest(c, "Creating user", "email", req.Email)

	user, err := h.userService.Create(c.Request.Context(), &req, actor.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateUserRequest
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

	h.LogRequest(c, "Updating user", "user_id", id)

	user, err := h.userService.Update(c.Request.Context(), id, &req, actor.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting user", "user_id", id)

	if err := h.userService.Delete(c.Request.Context(), id, actor.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "User deleted"})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	filters := repositories.UserFilters{Search: c.Query("search")}
	filters.Limit, filters.Offset = parsePagination(c)

	if raw := c.Query("role"); raw != "" {
		role := models.RoleName(raw)
		filters.Role = &role
	}
	if raw := c.Query("department_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			deptID := uint(id)
			filters.DepartmentID = &deptID
		}
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filters.Active = &active
	}
	if raw := c.Query("onboarding"); raw != "" {
		onboarding := raw == "true"
		filters.Onboarding = &onboarding
	}

	result, err := h.userService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.userService.ListRoles(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *UserHandler) ListDepartments(c *gin.Context) {
	departments, err := h.userService.ListDepartments(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, departments)
}

func (h *UserHandler) FinishOnboarding(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Finishing onboarding", "user_id", id)

	user, err := h.userService.FinishOnboarding(c.Request.Context(), id, actor.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
