package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/middleware"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

// UserHandlers handles registration, login and identity lookups
type UserHandlers struct {
	userService *services.UserService
	authService *services.AuthService
	logger      logrus.FieldLogger
}

// NewUserHandlers creates new user handlers
func NewUserHandlers(userService *services.UserService, authService *services.AuthService, logger logrus.FieldLogger) *UserHandlers {
	return &UserHandlers{userService: userService, authService: authService, logger: logger}
}

// AuthData represents the data in auth response
type AuthData struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles user registration
func (h *UserHandlers) Register(c *gin.Context) {
	var req models.UserRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusCreated, AuthData{User: user, Token: token}, "Registration successful")
}

// Login handles user authentication
func (h *UserHandlers) Login(c *gin.Context) {
	var req models.UserLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.userService.AuthenticateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, AuthData{User: user, Token: token}, "Login successful")
}

// Me returns the authenticated user
func (h *UserHandlers) Me(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, user, "")
}
