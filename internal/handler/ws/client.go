package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/logger"
)

var (
	errClientClosed = errors.New("connection closed")
	errSendBuffer   = errors.New("send buffer full")
)

// inboundEnvelope is one client frame: {"event": "...", "data": {...}}
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client is one signaling WebSocket. It implements domain.Connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string

	mu     sync.RWMutex
	userID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// ID implements domain.Connection
func (c *Client) ID() string { return c.id }

// UserID implements domain.Connection
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetUserID implements domain.Connection
func (c *Client) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// Send queues an event for the write pump. It never blocks; when the buffer
// is full the event is dropped.
func (c *Client) Send(event string, payload interface{}) error {
	data, err := json.Marshal(outboundEnvelope{Event: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- data:
		c.hub.recorder.RecordWebSocketMessage(event, "out")
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSendBuffer
	}
}

// Close stops the write pump and closes the socket. Safe to call repeatedly.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(constants.WebSocketWriteWait))
		_ = c.conn.Close()
	})
}

// readPump reads frames until the socket fails, dispatching each to the relay
func (c *Client) readPump() {
	c.conn.SetReadLimit(constants.WebSocketMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket connection closed",
					zap.String("conn_id", c.id),
					zap.String("user_id", c.UserID()),
					zap.Error(err))
			}
			return
		}

		var env inboundEnvelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			logger.Warn("Invalid message format from WebSocket",
				zap.String("conn_id", c.id),
				zap.String("user_id", c.UserID()),
				zap.Error(err))
			continue
		}

		c.hub.recorder.RecordWebSocketMessage(env.Event, "in")
		c.hub.relay.Dispatch(c, env.Event, env.Data)
	}
}

// writePump is the only writer of data frames
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
