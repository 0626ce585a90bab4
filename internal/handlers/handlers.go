package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the logger and shared helpers every handler embeds.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Error(msg, args...)
}

// parseIDParam reads a positive integer path parameter, writing the 400
// itself. Callers must return when it reports 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// currentUser returns the authenticated user placed by the auth middleware.
func (h *BaseHandler) currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return nil, false
	}
	return user, true
}

func parseUintQuery(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// handleServiceError maps service errors onto HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	var permErr *services.PermissionError
	var ruleErr *services.BusinessRuleError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})
	case errors.As(err, &permErr):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: permErr.Error()})
	case errors.As(err, &ruleErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: ruleErr.Message})
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrModuleNotFound),
		errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrPathNotFound),
		errors.Is(err, services.ErrNotAssigned):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrTitleTaken),
		errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrAccountDisabled),
		errors.Is(err, services.ErrSelfDelete):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrModuleNotPublished),
		errors.Is(err, services.ErrModuleRetired),
		errors.Is(err, services.ErrPublishedImmutable),
		errors.Is(err, services.ErrReportNotExportable):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error()})
	default:
		h.LogError(c, "Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
