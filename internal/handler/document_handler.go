package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docuvault-io/docuvault-api/internal/middleware"
	"github.com/docuvault-io/docuvault-api/internal/models"
	"github.com/docuvault-io/docuvault-api/internal/service"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/response"
)

// DocumentHandler exposes the document CRUD and download surface.
type DocumentHandler struct {
	service        *service.DocumentService
	maxUploadBytes int64
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 << 20
	}
	return &DocumentHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// Upload godoc
// @Summary Upload document
// @Description Upload a file with metadata as multipart form data
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Param name formData string false "Display name"
// @Param description formData string false "Description"
// @Param category_id formData string false "Category id"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "file too large"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	upload := service.DocumentUpload{
		Name:        c.PostForm("name"),
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}
	if desc := c.PostForm("description"); desc != "" {
		upload.Description = &desc
	}
	if categoryID := c.PostForm("category_id"); categoryID != "" {
		upload.CategoryID = &categoryID
	}

	doc, err := h.service.Upload(c.Request.Context(), userID, upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// List godoc
// @Summary List documents
// @Description List the caller's documents with optional filters
// @Tags Documents
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param category query string false "Category id"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := models.DocumentFilter{
		UserID:   middleware.CurrentUserID(c),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	docs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, docs, pagination)
}

// Get godoc
// @Summary Get document
// @Description Fetch a single document by id
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// Update godoc
// @Summary Update document
// @Description Update document metadata
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		CategoryID  *string `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	doc, err := h.service.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), service.DocumentUpdate{
		Name:        payload.Name,
		Description: payload.Description,
		CategoryID:  payload.CategoryID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete document
// @Description Delete a document and its stored file
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Issue download URL
// @Description Issue a short-lived signed token for downloading the file
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	token, expiresAt, err := h.service.DownloadURL(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download file
// @Description Stream the file bytes for a valid signed token
// @Tags Documents
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	f, err := h.service.OpenByToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}

	http.ServeContent(c.Writer, c.Request, filepath.Base(f.Name()), info.ModTime(), f)
}
