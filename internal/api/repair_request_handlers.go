package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/middleware"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// RepairRequestHandlers serves repair requests
type RepairRequestHandlers struct {
	repairs *services.RepairRequestService
	assets  *services.AssetService
	logger  logrus.FieldLogger
}

// NewRepairRequestHandlers creates new repair request handlers
func NewRepairRequestHandlers(repairs *services.RepairRequestService, assets *services.AssetService, logger logrus.FieldLogger) *RepairRequestHandlers {
	return &RepairRequestHandlers{repairs: repairs, assets: assets, logger: logger}
}

// UploadMedia stores up to five "media" files and returns their URLs
func (h *RepairRequestHandlers) UploadMedia(c *gin.Context) {
	assets, err := h.assets.UploadRepairMedia(c.Request.Context(), formFiles(c, "media"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	urls := make([]string, 0, len(assets))
	for _, a := range assets {
		urls = append(urls, a.URL)
	}
	respondOK(c, http.StatusOK, gin.H{"mediaUrls": urls}, "Media uploaded successfully")
}

// CreateRepairRequest files a request against one of the caller's orders
func (h *RepairRequestHandlers) CreateRepairRequest(c *gin.Context) {
	var req models.RepairRequestCreation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	request, err := h.repairs.CreateRepairRequest(c.Request.Context(), c.GetString(middleware.ContextUserID), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, request, "Repair request created successfully")
}

// GetRepairRequests lists every request
func (h *RepairRequestHandlers) GetRepairRequests(c *gin.Context) {
	requests, err := h.repairs.GetRepairRequests(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, requests, "")
}

// GetMyRepairRequests lists the caller's requests
func (h *RepairRequestHandlers) GetMyRepairRequests(c *gin.Context) {
	requests, err := h.repairs.GetUserRepairRequests(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, requests, "")
}

// GetOrderRepairRequests lists requests for one order. ?orderType narrows
// the lookup; without it transactions are tried before custom orders.
func (h *RepairRequestHandlers) GetOrderRepairRequests(c *gin.Context) {
	ref := models.OrderRef{ID: c.Param("orderId"), Type: models.OrderType(c.Query("orderType"))}

	requests, err := h.repairs.GetOrderRepairRequests(c.Request.Context(), ref, middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, requests, "")
}

// UpdateRepairRequest sets status and admin notes
func (h *RepairRequestHandlers) UpdateRepairRequest(c *gin.Context) {
	var req models.RepairRequestUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	request, err := h.repairs.UpdateRepairRequest(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, request, "Repair request updated successfully")
}

// DeleteRepairRequest removes a request
func (h *RepairRequestHandlers) DeleteRepairRequest(c *gin.Context) {
	if err := h.repairs.DeleteRepairRequest(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Repair request removed")
}
