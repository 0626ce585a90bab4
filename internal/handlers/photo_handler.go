package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type PhotoHandler struct {
	BaseHandler
	photoService services.PhotoService
	userService  services.UserService
}

func NewPhotoHandler(photoService services.PhotoService, userService services.UserService, logger utils.Logger) *PhotoHandler {
	return &PhotoHandler{
		BaseHandler:  NewBaseHandler(logger),
		photoService: photoService,
		userService:  userService,
	}
}

// UploadPhoto replaces the caller's profile photo. Admins can target any
// user via the id parameter.
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	targetID, ok := h.targetUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing photo form field",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Failed to read upload"})
		return
	}

	h.LogRequest(c, "Uploading profile photo", "user_id", targetID, "size", fileHeader.Size)

	filename, err := h.photoService.Store(c.Request.Context(), targetID, &services.PhotoUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Data:     data,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Photo uploaded",
		Data:    gin.H{"filename": filename},
	})
}

// GetPhoto streams a user's current profile photo.
func (h *PhotoHandler) GetPhoto(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if user.ProfilePhoto == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User has no profile photo"})
		return
	}

	path, err := h.photoService.Path(*user.ProfilePhoto)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Photo not found"})
		return
	}

	c.File(path)
}

func (h *PhotoHandler) DeletePhoto(c *gin.Context) {
	targetID, ok := h.targetUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting profile photo", "user_id", targetID)

	if err := h.photoService.Remove(c.Request.Context(), targetID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Photo removed"})
}

// targetUserID resolves whose photo the request operates on: the path id
// when present (admins only for other users), otherwise the caller.
func (h *PhotoHandler) targetUserID(c *gin.Context) (uint, bool) {
	actor, ok := h.currentUser(c)
	if !ok {
		return 0, false
	}

	raw := c.Param("id")
	if raw == "" {
		return actor.ID, true
	}

	id := h.parseIDParam(c, "id")
	if id == 0 {
		return 0, false
	}
	if id != actor.ID && actor.Role.Name != models.RoleAdmin {
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Insufficient permissions"})
		return 0, false
	}
	return id, true
}
