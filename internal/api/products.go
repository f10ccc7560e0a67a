package api

import (
	"net/http"
	"strconv"

	"marketplace-service/internal/service"
	"marketplace-service/internal/store"

	"github.com/gin-gonic/gin"
)

// createProduct creates a listing for the calling seller
func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// listSellerProducts returns the caller's listings
func (h *Handler) listSellerProducts(c *gin.Context) {
	products, err := h.catalog.ListSellerProducts(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct returns one product for an authenticated user
func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// updateProduct updates an owned listing
func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), currentUserID(c), productID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// deleteProduct removes an owned listing
func (h *Handler) deleteProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), currentUserID(c), productID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// browseCatalog serves the public catalog with filters and pagination
func (h *Handler) browseCatalog(c *gin.Context) {
	filter := store.CatalogFilter{
		Gender:      c.Query("gender"),
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Size:        c.Query("size"),
		Condition:   c.Query("condition"),
		Brand:       c.Query("brand"),
		Color:       c.Query("color"),
		Search:      c.Query("search"),
		Sort:        c.Query("sort"),
		MinPrice:    queryFloat(c, "min_price"),
		MaxPrice:    queryFloat(c, "max_price"),
		Page:        queryInt(c, "page", 1),
		PerPage:     queryInt(c, "per_page", 12),
	}

	result, err := h.catalog.BrowseCatalog(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// productDetails serves the public product page
func (h *Handler) productDetails(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	details, err := h.catalog.GetProductDetails(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func queryFloat(c *gin.Context, name string) *float64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
