package middleware_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnishop-backend/internal/middleware"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
	"furnishop-backend/test/helpers"
)

func newAuthRouter(t *testing.T, auth *services.AuthService, handlers ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		identity := middleware.CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"userID": identity.UserID, "role": identity.Role})
	})
	router.GET("/protected", handlers...)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	auth := services.NewAuthService(helpers.TestJWTSecret, 3600)
	mw := middleware.NewAuthMiddleware(auth)

	customer := &models.User{ID: "customer-1", Email: "customer@example.com", Role: models.UserRoleUser}
	admin := &models.User{ID: "admin-1", Email: "admin@example.com", Role: models.UserRoleAdmin}
	customerToken, err := auth.GenerateToken(customer)
	require.NoError(t, err)
	adminToken, err := auth.GenerateToken(admin)
	require.NoError(t, err)

	t.Run("AuthRequired_ValidToken", func(t *testing.T) {
		router := newAuthRouter(t, auth, mw.AuthRequired())
		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + customerToken})

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "customer-1", response["userID"])
		assert.Equal(t, "user", response["role"])
	})

	t.Run("AuthRequired_NoToken", func(t *testing.T) {
		router := newAuthRouter(t, auth, mw.AuthRequired())
		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, nil)
		resp := helpers.AssertErrorResponse(t, w, http.StatusUnauthorized)
		assert.Equal(t, "Not authorized, no token", resp["message"])
	})

	t.Run("AuthRequired_BadScheme", func(t *testing.T) {
		router := newAuthRouter(t, auth, mw.AuthRequired())
		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Token " + customerToken})
		helpers.AssertErrorResponse(t, w, http.StatusUnauthorized)
	})

	t.Run("AuthRequired_ForeignSecret", func(t *testing.T) {
		other := services.NewAuthService("another-secret-entirely", 3600)
		token, err := other.GenerateToken(customer)
		require.NoError(t, err)

		router := newAuthRouter(t, auth, mw.AuthRequired())
		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + token})
		resp := helpers.AssertErrorResponse(t, w, http.StatusUnauthorized)
		assert.Equal(t, "Not authorized, token failed", resp["message"])
	})

	t.Run("RequireRole_Admin", func(t *testing.T) {
		router := newAuthRouter(t, auth, mw.AuthRequired(), mw.RequireRole(models.UserRoleAdmin))

		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + customerToken})
		resp := helpers.AssertErrorResponse(t, w, http.StatusForbidden)
		assert.Equal(t, "Not authorized as admin", resp["message"])

		w = helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + adminToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("RequireRoles_AnyOf", func(t *testing.T) {
		router := newAuthRouter(t, auth, mw.AuthRequired(), mw.RequireRoles(models.UserRoleAdmin, models.UserRoleUser))
		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + customerToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("OptionalAuth", func(t *testing.T) {
		router := newAuthRouter(t, auth, mw.OptionalAuth())

		w := helpers.MakeRequest(router, http.MethodGet, "/protected", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userID":""`)

		w = helpers.MakeRequest(router, http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + adminToken})
		assert.Contains(t, w.Body.String(), `"userID":"admin-1"`)
	})
}

func newSecureRouter(config *middleware.SecurityConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.SecurityMiddleware(config, helpers.Logger()))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }
	router.GET("/items", ok)
	router.POST("/items", ok)
	return router
}

func TestSecurityMiddleware(t *testing.T) {
	t.Run("sets headers", func(t *testing.T) {
		router := newSecureRouter(middleware.DefaultSecurityConfig())
		w := helpers.MakeRequest(router, http.MethodGet, "/items", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		config := middleware.DefaultSecurityConfig()
		config.MaxRequestSize = 16
		router := newSecureRouter(config)
		w := helpers.MakeRequest(router, http.MethodPost, "/items", map[string]string{"name": "a very long furniture name"}, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("rejects unknown content types", func(t *testing.T) {
		router := newSecureRouter(middleware.DefaultSecurityConfig())
		req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewBufferString("<xml/>"))
		req.Header.Set("Content-Type", "application/xml")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("rejects traversal in the url", func(t *testing.T) {
		router := newSecureRouter(middleware.DefaultSecurityConfig())
		w := helpers.MakeRequest(router, http.MethodGet, "/items?file=../../etc/passwd", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate limits per ip", func(t *testing.T) {
		config := middleware.DefaultSecurityConfig()
		config.RateLimitRequests = 2
		config.RateLimitWindow = time.Hour
		router := newSecureRouter(config)

		for i := 0; i < 2; i++ {
			w := helpers.MakeRequest(router, http.MethodGet, "/items", nil, nil)
			assert.Equal(t, http.StatusOK, w.Code)
		}
		w := helpers.MakeRequest(router, http.MethodGet, "/items", nil, nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("requires https when configured", func(t *testing.T) {
		config := middleware.DefaultSecurityConfig()
		config.RequireHTTPS = true
		router := newSecureRouter(config)

		w := helpers.MakeRequest(router, http.MethodGet, "/items", nil, nil)
		assert.Equal(t, http.StatusUpgradeRequired, w.Code)

		w = helpers.MakeRequest(router, http.MethodGet, "/items", nil, map[string]string{"X-Forwarded-Proto": "https"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	})
}

func TestFileUploadSecurityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/upload", middleware.FileUploadSecurityMiddleware(1<<20), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	upload := func(filename string) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, _ = part.Write([]byte("content"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, upload("chair.glb").Code)
	assert.Equal(t, http.StatusBadRequest, upload("setup.EXE").Code)
	assert.Equal(t, http.StatusBadRequest, upload("payload.php").Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CORSMiddleware([]string{"http://localhost:3000/"}, false))
	router.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := helpers.MakeRequest(router, http.MethodGet, "/items", nil, map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = helpers.MakeRequest(router, http.MethodGet, "/items", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = helpers.MakeRequest(router, http.MethodOptions, "/items", nil, map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
