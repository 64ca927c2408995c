package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// PaymentMethodHandlers serves the shop's e-wallet accounts
type PaymentMethodHandlers struct {
	methods *services.PaymentMethodService
	assets  *services.AssetService
	logger  logrus.FieldLogger
}

// NewPaymentMethodHandlers creates new payment method handlers
func NewPaymentMethodHandlers(methods *services.PaymentMethodService, assets *services.AssetService, logger logrus.FieldLogger) *PaymentMethodHandlers {
	return &PaymentMethodHandlers{methods: methods, assets: assets, logger: logger}
}

// GetActivePaymentMethods lists the methods offered at checkout
func (h *PaymentMethodHandlers) GetActivePaymentMethods(c *gin.Context) {
	methods, err := h.methods.GetActivePaymentMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, methods, "")
}

// GetAllPaymentMethods lists active and inactive methods
func (h *PaymentMethodHandlers) GetAllPaymentMethods(c *gin.Context) {
	methods, err := h.methods.GetPaymentMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, methods, "")
}

// GetPaymentMethod returns one method
func (h *PaymentMethodHandlers) GetPaymentMethod(c *gin.Context) {
	method, err := h.methods.GetPaymentMethodByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, method, "")
}

// UploadQR stores a QR code image
func (h *PaymentMethodHandlers) UploadQR(c *gin.Context) {
	file, ok := formFile(c, "qrImage")
	if !ok {
		badRequest(c, "No file uploaded")
		return
	}

	asset, err := h.assets.UploadQRImage(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, asset, "QR image uploaded successfully")
}

// CreatePaymentMethod adds an e-wallet account
func (h *PaymentMethodHandlers) CreatePaymentMethod(c *gin.Context) {
	var req models.PaymentMethodCreation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	method, err := h.methods.CreatePaymentMethod(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, method, "Payment method created successfully")
}

// UpdatePaymentMethod applies a partial update
func (h *PaymentMethodHandlers) UpdatePaymentMethod(c *gin.Context) {
	var req models.PaymentMethodUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	method, err := h.methods.UpdatePaymentMethod(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, method, "Payment method updated successfully")
}

// DeletePaymentMethod removes a method and its QR image
func (h *PaymentMethodHandlers) DeletePaymentMethod(c *gin.Context) {
	if err := h.methods.DeletePaymentMethod(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Payment method removed")
}
