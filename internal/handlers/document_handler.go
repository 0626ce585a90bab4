package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/storage"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type DocumentHandler struct {
	BaseHandler
	documentService services.DocumentService
	store           *storage.DocumentStore
}

func NewDocumentHandler(documentService services.DocumentService, store *storage.DocumentStore, logger utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler:     NewBaseHandler(logger),
		documentService: documentService,
		store:           store,
	}
}

// UploadDocument stores the file and its metadata row. Title and category
// arrive as multipart form values next to the file.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file form field",
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

	req := services.CreateDocumentRequest{
		Title:    c.PostForm("title"),
		Category: c.PostForm("category"),
	}

	filename, err := h.store.Save(fileHeader.Filename, data)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Uploading document", "title", req.Title, "category", req.Category)

	doc, err := h.documentService.Create(c.Request.Context(), &req, filename, actor.ID)
	if err != nil {
		// The metadata row failed; do not leave the file behind.
		if cleanupErr := h.store.Delete(filename); cleanupErr != nil {
			h.LogError(c, "Failed to clean up document file", "filename", filename, "error", cleanupErr)
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	filters := repositories.DocumentFilters{}
	filters.Limit, filters.Offset = parsePagination(c)

	if raw := c.Query("category"); raw != "" {
		category := models.DocumentCategory(raw)
		filters.Category = &category
	}

	result, err := h.documentService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DownloadDocument streams the stored file with its display title.
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	path, err := h.store.Path(doc.FilePath)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Document file not found"})
		return
	}

	c.FileAttachment(path, doc.Title)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting document", "document_id", id)

	if err := h.documentService.Delete(c.Request.Context(), id, actor.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Document deleted"})
}
