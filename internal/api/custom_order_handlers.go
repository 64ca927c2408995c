package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/middleware"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// CustomOrderHandlers serves made-to-order requests
type CustomOrderHandlers struct {
	orders *services.CustomOrderService
	logger logrus.FieldLogger
}

// NewCustomOrderHandlers creates new custom order handlers
func NewCustomOrderHandlers(orders *services.CustomOrderService, logger logrus.FieldLogger) *CustomOrderHandlers {
	return &CustomOrderHandlers{orders: orders, logger: logger}
}

// CreateCustomOrder accepts a multipart form with up to five "images"
func (h *CustomOrderHandlers) CreateCustomOrder(c *gin.Context) {
	var req models.CustomOrderCreation
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Please provide all required fields: "+err.Error())
		return
	}

	order, err := h.orders.CreateCustomOrder(c.Request.Context(), c.GetString(middleware.ContextUserID), &req, formFiles(c, "images"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, order, "Custom order created successfully")
}

// GetCustomOrders lists the caller's orders, or all orders for admins
func (h *CustomOrderHandlers) GetCustomOrders(c *gin.Context) {
	orders, err := h.orders.GetCustomOrders(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, orders, "")
}

// GetCustomOrder returns one order to its owner or an admin
func (h *CustomOrderHandlers) GetCustomOrder(c *gin.Context) {
	order, err := h.orders.GetCustomOrderByID(c.Request.Context(), c.Param("id"), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, order, "")
}

// UpdateCustomOrder sets status and admin notes
func (h *CustomOrderHandlers) UpdateCustomOrder(c *gin.Context) {
	var req models.CustomOrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	order, err := h.orders.UpdateCustomOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, order, "Custom order updated successfully")
}

// DeleteCustomOrder removes an order and its images
func (h *CustomOrderHandlers) DeleteCustomOrder(c *gin.Context) {
	if err := h.orders.DeleteCustomOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Custom order deleted successfully")
}
