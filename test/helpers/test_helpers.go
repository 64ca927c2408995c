// Package helpers holds fixtures shared by the package tests
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"furnishop-backend/config"
	"furnishop-backend/database"
	"furnishop-backend/internal/logging"
	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

const TestJWTSecret = "test-jwt-secret-key-12345678901234567890"

// NewTestConfig returns a configuration suitable for tests
func NewTestConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		Port:              "0",
		DatabaseURL:       "test.db",
		JWTSecret:         TestJWTSecret,
		JWTExpiration:     86400,
		SignedURLTTL:      time.Hour,
		CacheTTL:          time.Minute,
		LogLevel:          "error",
		AllowAllOrigins:   true,
		RateLimitRequests: 10000,
		RateLimitWindow:   time.Minute,
		MaxRequestSize:    60 << 20,
	}
}

// Logger returns a logger that drops everything
func Logger() *logrus.Logger {
	return logging.Discard()
}

// SetupTestDatabase opens a migrated sqlite database in a temp dir.
// A file is used instead of :memory: so every pooled connection sees the same data.
func SetupTestDatabase(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "furnishop.db")
	db, err := database.Initialize(path, Logger())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, Logger()))

	t.Cleanup(func() { db.Close() })
	return db
}

// TestUser is a user inserted directly into the database with a signed token
type TestUser struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     models.UserRole
	Token    string
}

// Identity returns the caller identity of the user
func (u TestUser) Identity() models.Identity {
	return models.Identity{UserID: u.ID, Role: u.Role}
}

// AuthHeaders returns the bearer header for the user
func (u TestUser) AuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + u.Token}
}

// CreateTestUser inserts a user and signs a token for it
func CreateTestUser(t *testing.T, db *sqlx.DB, role models.UserRole) TestUser {
	t.Helper()

	id := uuid.New().String()
	user := TestUser{
		ID:       id,
		Name:     "Test " + string(role),
		Email:    id[:8] + "@example.com",
		Password: "password123",
		Role:     role,
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, user.ID, user.Name, user.Email, string(hash), string(role), now, now)
	require.NoError(t, err)

	auth := services.NewAuthService(TestJWTSecret, 86400)
	user.Token, err = auth.GenerateToken(&models.User{ID: user.ID, Email: user.Email, Role: role})
	require.NoError(t, err)

	return user
}

// CreateTestProduct inserts a product through the product service
func CreateTestProduct(t *testing.T, db *sqlx.DB, name string, price float64, stock int) *models.Product {
	t.Helper()

	products := services.NewProductService(db, nil, Logger())
	product, err := products.CreateProduct(context.Background(), &models.ProductCreation{
		Name:        name,
		Description: "Solid wood " + name,
		Price:       price,
		Category:    models.CategoryTables,
		Stock:       stock,
	})
	require.NoError(t, err)
	return product
}

// ProductStock reads a product's stock straight from the database
func ProductStock(t *testing.T, db *sqlx.DB, productID string) int {
	t.Helper()

	var stock int
	require.NoError(t, db.Get(&stock, `SELECT stock FROM products WHERE id = ?`, productID))
	return stock
}

// TestCheckout builds a valid checkout for the given items
func TestCheckout(items ...models.TransactionItem) *models.TransactionCreation {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return &models.TransactionCreation{
		Items:       items,
		TotalAmount: total,
		ShippingAddress: models.ShippingAddress{
			Address: "12 Narra Street",
			City:    "Quezon City",
			ZipCode: "1100",
			Country: "Philippines",
		},
		PaymentMethod: &models.PaymentRecord{
			Provider:        models.PaymentProviderGCash,
			ReferenceNumber: "REF-1001",
			SenderNumber:    "+639171234567",
			SenderName:      "Juan Dela Cruz",
		},
	}
}

// MapCache is an in-memory CatalogCache that records deletions
type MapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	Deleted []string
}

// NewMapCache creates an empty cache
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string][]byte)}
}

func (c *MapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MapCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *MapCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.Deleted = append(c.Deleted, key)
	}
}

// Has reports whether key is cached
func (c *MapCache) Has(key string) bool {
	_, ok := c.Get(context.Background(), key)
	return ok
}

// RecordingPublisher keeps every published order event
type RecordingPublisher struct {
	mu     sync.Mutex
	events []services.OrderEvent
}

func (p *RecordingPublisher) PublishOrderEvent(event services.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of the published events
func (p *RecordingPublisher) Events() []services.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]services.OrderEvent(nil), p.events...)
}

// MakeRequest makes a JSON request against the router
func MakeRequest(router http.Handler, method, url string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req := httptest.NewRequest(method, url, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// AssertSuccessResponse asserts the status and a success envelope
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) map[string]interface{} {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	return response
}

// AssertErrorResponse asserts the status and a failure envelope
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) map[string]interface{} {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["success"])
	return response
}

func init() {
	gin.SetMode(gin.TestMode)
}
