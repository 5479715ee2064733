package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signaling-relay/internal/domain"
	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/logger"
	"signaling-relay/pkg/response"
)

// Relay is the signaling core the hub feeds
type Relay interface {
	Dispatch(conn domain.Connection, event string, raw json.RawMessage)
	Disconnect(conn domain.Connection)
}

// Recorder receives transport metrics
type Recorder interface {
	SetWebSocketConnections(count int)
	RecordWebSocketMessage(event, direction string)
	RecordWebSocketRejected(reason string)
}

type nopRecorder struct{}

func (nopRecorder) SetWebSocketConnections(int)           {}
func (nopRecorder) RecordWebSocketMessage(string, string) {}
func (nopRecorder) RecordWebSocketRejected(string)        {}

// HubConfig configures a Hub
type HubConfig struct {
	AllowedOrigins []string // "*" or empty allows all
	MaxConnections int
}

// Hub accepts signaling WebSockets and bridges them to the relay
type Hub struct {
	relay    Relay
	recorder Recorder
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}

	// Concurrency limit: maxConnections is the maximum number of concurrent WebSocket connections
	maxConnections int
	semaphore      chan struct{}
}

// NewHub creates a new signaling hub. recorder may be nil.
func NewHub(relay Relay, cfg HubConfig, recorder Recorder) *Hub {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = constants.DefaultMaxConnections
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	h := &Hub{
		relay:          relay,
		recorder:       recorder,
		clients:        make(map[*Client]struct{}),
		maxConnections: cfg.MaxConnections,
		semaphore:      make(chan struct{}, cfg.MaxConnections),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker allows requests without an Origin header (native clients)
// and origins on the list
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := len(allowed) == 0
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// ServeWS upgrades an authenticated request and serves it until the socket
// closes. The relay has finished tearing down the connection when it returns.
func (h *Hub) ServeWS(c *gin.Context) {
	// Acquire semaphore to limit concurrent connections
	select {
	case h.semaphore <- struct{}{}:
		defer func() { <-h.semaphore }()
	default:
		h.recorder.RecordWebSocketRejected("capacity")
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		response.ServiceUnavailable(c, "Server at capacity, please try again later")
		return
	}

	// Identity is set by the auth middleware before upgrade
	userID := c.GetString("user_id")
	if userID == "" {
		h.recorder.RecordWebSocketRejected("unauthenticated")
		response.Unauthorized(c, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.recorder.RecordWebSocketRejected("upgrade")
		logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", userID),
			zap.String("origin", c.Request.Header.Get("Origin")),
			zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		id:     uuid.New().String(),
		userID: userID,
		send:   make(chan []byte, constants.WebSocketSendBuffer),
		done:   make(chan struct{}),
	}
	h.add(client)
	logger.Info("Signaling client connected",
		zap.String("conn_id", client.id),
		zap.String("user_id", userID))

	go client.writePump()
	client.readPump()

	h.relay.Disconnect(client)
	h.remove(client)
	client.Close(websocket.CloseNormalClosure, "")
	logger.Info("Signaling client disconnected",
		zap.String("conn_id", client.id),
		zap.String("user_id", client.UserID()))
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.recorder.SetWebSocketConnections(n)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	h.recorder.SetWebSocketConnections(n)
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection with a going-away frame
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
}
