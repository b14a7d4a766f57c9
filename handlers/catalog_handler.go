package handlers

import (
	"net/http"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	catalogservice "github.com/BirdScout/bird-scout-backend/models/catalog/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the cached bird catalog.
type CatalogHandler struct {
	catalog *catalogservice.CatalogService
}

func NewCatalogHandler(catalog *catalogservice.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListCategoriesHandler(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CatalogHandler) ListSpeciesHandler(c *gin.Context) {
	species, err := h.catalog.ListSpecies(c.Request.Context(), c.Param("categoryId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species})
}

func (h *CatalogHandler) GetSpeciesHandler(c *gin.Context) {
	species, err := h.catalog.GetSpecies(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, species)
}

func (h *CatalogHandler) SearchSpeciesHandler(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		_ = c.Error(apperrors.ValidationFailed("missing_query", "Query parameter q is required"))
		return
	}
	species, err := h.catalog.SearchSpecies(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species})
}
