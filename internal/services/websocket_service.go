package services

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
)

// Order event types
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

const (
	adminRoom      = "admins"
	userRoomPrefix = "user:"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// OrderEvent describes a change to a transaction or custom order
type OrderEvent struct {
	Type           string           `json:"type"`
	OrderID        string           `json:"orderId"`
	OrderType      models.OrderType `json:"orderType"`
	UserID         string           `json:"userId"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previousStatus,omitempty"`
	At             time.Time        `json:"at"`
}

// OrderEventPublisher receives order events after they are committed
type OrderEventPublisher interface {
	PublishOrderEvent(event OrderEvent)
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(OrderEvent) {}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type    string      `json:"type"`
	RoomID  string      `json:"roomId,omitempty"`
	UserID  string      `json:"userId,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	ID     string
	UserID string
	Role   models.UserRole
	Conn   *websocket.Conn
	Send   chan WebSocketMessage
	Hub    *Hub
	logger logrus.FieldLogger
}

// Hub maintains the set of active clients and fans out order events
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages, delivered to RoomID or to everyone
	broadcast chan WebSocketMessage

	register   chan *Client
	unregister chan *Client

	// Room subscriptions - maps roomID to clients
	rooms map[string]map[*Client]bool

	done chan struct{}

	mutex sync.RWMutex
}

// WebSocketService streams order events to connected clients.
// Admins receive every event, customers receive events for their own orders.
type WebSocketService struct {
	hub      *Hub
	auth     *AuthService
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
}

// NewWebSocketService creates a WebSocket service and starts its hub.
// allowedOrigins empty accepts any origin.
func NewWebSocketService(auth *AuthService, allowedOrigins []string, logger logrus.FieldLogger) *WebSocketService {
	hub := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan WebSocketMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
	}

	service := &WebSocketService{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 {
					return true
				}
				for _, allowed := range allowedOrigins {
					if strings.EqualFold(origin, allowed) {
						return true
					}
				}
				return false
			},
		},
		logger: logger.WithField("component", "websocket"),
	}

	go hub.run()

	return service
}

// Close stops the hub and disconnects every client
func (s *WebSocketService) Close() {
	close(s.hub.done)
}

// PublishOrderEvent implements OrderEventPublisher
func (s *WebSocketService) PublishOrderEvent(event OrderEvent) {
	message := WebSocketMessage{Type: event.Type, UserID: event.UserID, Data: event}

	for _, room := range []string{adminRoom, userRoomPrefix + event.UserID} {
		message.RoomID = room
		select {
		case s.hub.broadcast <- message:
		case <-s.hub.done:
			return
		default:
			s.logger.WithFields(logrus.Fields{"room": room, "order_id": event.OrderID}).Warn("event dropped, hub is saturated")
		}
	}
}

// HandleWebSocket upgrades an authenticated request. The token comes from the
// auth middleware or, for browsers that cannot set headers, ?token=.
func (s *WebSocketService) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("userID")
	role := models.UserRole(c.GetString("userRole"))

	if userID == "" {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization token required"})
			return
		}
		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			s.logger.WithError(err).Debug("websocket token rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}
		userID = claims.UserID
		role = models.UserRole(claims.Role)
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Role:   role,
		Conn:   conn,
		Send:   make(chan WebSocketMessage, 256),
		Hub:    s.hub,
		logger: s.logger.WithField("user_id", userID),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ConnectedClients returns the number of live connections
func (s *WebSocketService) ConnectedClients() int {
	s.hub.mutex.RLock()
	defer s.hub.mutex.RUnlock()
	return len(s.hub.clients)
}

// Hub methods
func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.join(client, userRoomPrefix+client.UserID)
			if client.Role == models.UserRoleAdmin {
				h.join(client, adminRoom)
			}
			h.mutex.Unlock()

			select {
			case client.Send <- WebSocketMessage{Type: "connected", Message: "Subscribed to order updates"}:
			default:
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			targets := h.clients
			if message.RoomID != "" {
				targets = h.rooms[message.RoomID]
			}
			for client := range targets {
				select {
				case client.Send <- message:
				default:
					// Slow consumer
					h.drop(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// join must be called with the mutex held
func (h *Hub) join(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

// drop must be called with the mutex held
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	for roomID, roomClients := range h.rooms {
		if _, inRoom := roomClients[client]; inRoom {
			delete(roomClients, client)
			if len(roomClients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// Client methods
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message WebSocketMessage
		if err := c.Conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Warn("websocket read failed")
			}
			return
		}

		// The feed is server push only; clients may ping
		if message.Type == "ping" {
			c.Hub.mutex.RLock()
			if c.Hub.clients[c] {
				select {
				case c.Send <- WebSocketMessage{Type: "pong"}:
				default:
				}
			}
			c.Hub.mutex.RUnlock()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				c.logger.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
