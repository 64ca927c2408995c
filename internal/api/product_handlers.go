package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// ProductHandlers serves the furniture catalog
type ProductHandlers struct {
	products *services.ProductService
	assets   *services.AssetService
	logger   logrus.FieldLogger
}

// NewProductHandlers creates new product handlers
func NewProductHandlers(products *services.ProductService, assets *services.AssetService, logger logrus.FieldLogger) *ProductHandlers {
	return &ProductHandlers{products: products, assets: assets, logger: logger}
}

// GetProducts lists the catalog
func (h *ProductHandlers) GetProducts(c *gin.Context) {
	products, err := h.products.GetProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, products, "")
}

// GetProduct returns one product
func (h *ProductHandlers) GetProduct(c *gin.Context) {
	product, err := h.products.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, product, "")
}

// CreateProduct creates a product. Models may be sent as an array or a JSON string.
func (h *ProductHandlers) CreateProduct(c *gin.Context) {
	var req models.ProductCreation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, product, "Product created successfully")
}

// UpdateProduct applies a partial update
func (h *ProductHandlers) UpdateProduct(c *gin.Context) {
	var req models.ProductUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, product, "Product updated successfully")
}

// DeleteProduct removes a product
func (h *ProductHandlers) DeleteProduct(c *gin.Context) {
	if err := h.products.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Product removed")
}

// UploadImage stores a product image at models/<name>/images/image-<imageIndex><ext>
func (h *ProductHandlers) UploadImage(c *gin.Context) {
	file, ok := formFile(c, "image")
	if !ok {
		badRequest(c, "No file uploaded")
		return
	}

	asset, err := h.assets.UploadProductImage(c.Request.Context(), c.PostForm("name"), c.PostForm("imageIndex"), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, asset, "Image uploaded successfully")
}

// UploadModel stores a product model at models/<name>/<name>-<modelIndex>.glb
func (h *ProductHandlers) UploadModel(c *gin.Context) {
	file, ok := formFile(c, "model")
	if !ok {
		badRequest(c, "No file uploaded")
		return
	}

	name := c.PostForm("productName")
	if name == "" {
		name = c.PostForm("name")
	}

	asset, err := h.assets.UploadProductModel(c.Request.Context(), name, c.PostForm("modelIndex"), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, asset, "Model uploaded successfully")
}
