package api

import (
	"net/http"
	"strconv"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	service catalog.CatalogUseCase
}

func NewCatalogHandler(service catalog.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) Register(router *gin.RouterGroup) {
	router.GET("/categories", h.categories)
	router.GET("/items", h.items)
}

func (h *CatalogHandler) categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}

func (h *CatalogHandler) items(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Query("category_id"), 10, 64)
	if err != nil {
		respondError(c, apperrors.Validation("category_id", "The category_id field must be an integer."))
		return
	}
	items, err := h.service.Items(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}
