package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvault-io/docuvault-api/internal/service"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/response"
)

// CategoryHandler exposes the global category list.
type CategoryHandler struct {
	service *service.CategoryService
}

// NewCategoryHandler creates a new handler.
func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// List godoc
// @Summary List categories
// @Description List all document categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, categories, nil)
}

// Create godoc
// @Summary Create category
// @Description Create a category (admin only)
// @Tags Categories
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var payload struct {
		Name  string  `json:"name" binding:"required"`
		Color *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.Create(c.Request.Context(), payload.Name, payload.Color)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, category)
}
