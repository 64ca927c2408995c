package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/services"
)

// AssetHandlers serves generic admin asset uploads
type AssetHandlers struct {
	assets       *services.AssetService
	signedURLTTL time.Duration
	logger       logrus.FieldLogger
}

// NewAssetHandlers creates new asset handlers
func NewAssetHandlers(assets *services.AssetService, signedURLTTL time.Duration, logger logrus.FieldLogger) *AssetHandlers {
	return &AssetHandlers{assets: assets, signedURLTTL: signedURLTTL, logger: logger}
}

// UploadModel stores a single "model" file
func (h *AssetHandlers) UploadModel(c *gin.Context) {
	file, ok := formFile(c, "model")
	if !ok {
		badRequest(c, "No file uploaded")
		return
	}

	asset, err := h.assets.UploadModel(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, asset, "Model uploaded successfully")
}

// UploadTexture stores a single "texture" file
func (h *AssetHandlers) UploadTexture(c *gin.Context) {
	file, ok := formFile(c, "texture")
	if !ok {
		badRequest(c, "No file uploaded")
		return
	}

	asset, err := h.assets.UploadTexture(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, asset, "Texture uploaded successfully")
}

// UploadMultipleModels stores up to ten "models" files
func (h *AssetHandlers) UploadMultipleModels(c *gin.Context) {
	files := formFiles(c, "models")
	if len(files) == 0 {
		badRequest(c, "No files uploaded")
		return
	}

	assets, err := h.assets.UploadModels(c.Request.Context(), files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, assets, "Models uploaded successfully")
}

type deleteAssetRequest struct {
	URL string `json:"url"`
}

// DeleteAsset removes the object behind {"url": ...}
func (h *AssetHandlers) DeleteAsset(c *gin.Context) {
	var req deleteAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "File URL is required")
		return
	}

	if err := h.assets.DeleteByURL(c.Request.Context(), req.URL); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "File deleted successfully")
}

// SignedURL returns a short-lived GET URL for ?key= (a key or a stored URL)
func (h *AssetHandlers) SignedURL(c *gin.Context) {
	ttl := h.signedURLTTL
	if raw := c.Query("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			badRequest(c, "ttl must be a duration such as 10m")
			return
		}
		ttl = parsed
	}

	signed, err := h.assets.SignedURL(c.Request.Context(), c.Query("key"), ttl)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"url": signed}, "")
}
