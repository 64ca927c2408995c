package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/middleware"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// TransactionHandlers serves checkout orders
type TransactionHandlers struct {
	transactions *services.TransactionService
	assets       *services.AssetService
	logger       logrus.FieldLogger
}

// NewTransactionHandlers creates new transaction handlers
func NewTransactionHandlers(transactions *services.TransactionService, assets *services.AssetService, logger logrus.FieldLogger) *TransactionHandlers {
	return &TransactionHandlers{transactions: transactions, assets: assets, logger: logger}
}

// CreateTransaction places an order for the caller
func (h *TransactionHandlers) CreateTransaction(c *gin.Context) {
	var req models.TransactionCreation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	transaction, err := h.transactions.CreateTransaction(c.Request.Context(), c.GetString(middleware.ContextUserID), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, transaction, "Transaction created successfully")
}

// GetTransactions lists every transaction
func (h *TransactionHandlers) GetTransactions(c *gin.Context) {
	transactions, err := h.transactions.GetTransactions(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, transactions, "")
}

// GetMyTransactions lists the caller's transactions
func (h *TransactionHandlers) GetMyTransactions(c *gin.Context) {
	transactions, err := h.transactions.GetUserTransactions(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, transactions, "")
}

// GetTransaction returns one transaction to its owner or an admin
func (h *TransactionHandlers) GetTransaction(c *gin.Context) {
	transaction, err := h.transactions.GetTransactionByID(c.Request.Context(), c.Param("id"), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, transaction, "")
}

// UpdateTransactionStatus moves a transaction through its lifecycle
func (h *TransactionHandlers) UpdateTransactionStatus(c *gin.Context) {
	var req models.TransactionStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	transaction, err := h.transactions.UpdateTransactionStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, transaction, "Transaction updated successfully")
}

// DeleteTransaction removes a transaction record
func (h *TransactionHandlers) DeleteTransaction(c *gin.Context) {
	if err := h.transactions.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Transaction removed")
}

// UploadScreenshot stores a proof of payment image
func (h *TransactionHandlers) UploadScreenshot(c *gin.Context) {
	file, ok := formFile(c, "screenshot")
	if !ok {
		badRequest(c, "No file uploaded")
		return
	}

	asset, err := h.assets.UploadPaymentScreenshot(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, asset, "Screenshot uploaded successfully")
}
