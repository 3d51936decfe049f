package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallwares/backoffice/internal/service"
)

// ProductHandler exposes catalog CRUD and tag suggestion endpoints.
type ProductHandler struct {
	Products  *service.ProductService
	Suggester *service.TagSuggester
}

// NewProductHandler creates the handler set.
func NewProductHandler(products *service.ProductService, suggester *service.TagSuggester) *ProductHandler {
	return &ProductHandler{Products: products, Suggester: suggester}
}

type productRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Price       float64  `json:"price"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
		Price:       r.Price,
	}
}

// Create persists a new product.
func (h *ProductHandler) Create(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body.")
		return
	}

	view, err := h.Products.Create(c.Request.Context(), req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Get returns one product.
func (h *ProductHandler) Get(c *gin.Context) {
	view, err := h.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// List returns all products.
func (h *ProductHandler) List(c *gin.Context) {
	views, err := h.Products.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Update replaces the mutable fields of a product.
func (h *ProductHandler) Update(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body.")
		return
	}

	view, err := h.Products.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete removes a product.
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SuggestTags proxies the product content to the tag suggester.
func (h *ProductHandler) SuggestTags(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body.")
		return
	}

	tags, err := h.Suggester.Suggest(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestedTags": tags})
}
