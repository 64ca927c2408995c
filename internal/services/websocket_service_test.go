package services_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
	"furnishop-backend/test/helpers"
)

func dialOrders(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/orders?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello services.WebSocketMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)
	return conn
}

func TestOrderEventFeed(t *testing.T) {
	auth := services.NewAuthService(helpers.TestJWTSecret, 3600)
	feed := services.NewWebSocketService(auth, nil, helpers.Logger())
	defer feed.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/orders", feed.HandleWebSocket)
	server := httptest.NewServer(router)
	defer server.Close()

	token := func(id string, role models.UserRole) string {
		tok, err := auth.GenerateToken(&models.User{ID: id, Email: id + "@example.com", Role: role})
		require.NoError(t, err)
		return tok
	}

	admin := dialOrders(t, server, token("admin-1", models.UserRoleAdmin))
	owner := dialOrders(t, server, token("customer-1", models.UserRoleUser))
	bystander := dialOrders(t, server, token("customer-2", models.UserRoleUser))
	assert.Equal(t, 3, feed.ConnectedClients())

	feed.PublishOrderEvent(services.OrderEvent{
		Type:      services.EventOrderCreated,
		OrderID:   "order-1",
		OrderType: models.OrderTypeTransaction,
		UserID:    "customer-1",
		Status:    "pending",
		At:        time.Now(),
	})

	for name, conn := range map[string]*websocket.Conn{"admin": admin, "owner": owner} {
		var msg services.WebSocketMessage
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg), name)
		assert.Equal(t, services.EventOrderCreated, msg.Type, name)
		assert.Equal(t, "customer-1", msg.UserID, name)
	}

	var msg services.WebSocketMessage
	require.NoError(t, bystander.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	assert.Error(t, bystander.ReadJSON(&msg), "other customers do not see the event")
}

func TestOrderEventFeedRejectsMissingToken(t *testing.T) {
	auth := services.NewAuthService(helpers.TestJWTSecret, 3600)
	feed := services.NewWebSocketService(auth, nil, helpers.Logger())
	defer feed.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/orders", feed.HandleWebSocket)

	w := helpers.MakeRequest(router, http.MethodGet, "/ws/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = helpers.MakeRequest(router, http.MethodGet, "/ws/orders?token=garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
