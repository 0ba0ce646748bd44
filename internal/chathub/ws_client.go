package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campuschat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WebSocketClient adapts a gorilla/websocket connection to the hub's Client
// interface. One read pump and one write pump run per connection.
type WebSocketClient struct {
	userID string
	conn   *websocket.Conn
	hub    *Hub
	send   chan models.Envelope
	log    zerolog.Logger

	closeOnce sync.Once
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, userID string, log zerolog.Logger) *WebSocketClient {
	return &WebSocketClient{
		userID: userID,
		conn:   conn,
		hub:    hub,
		send:   make(chan models.Envelope, 256),
		log:    log.With().Str("user", userID).Logger(),
	}
}

func (c *WebSocketClient) GetUserID() string { return c.userID }

func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.send }

// Run starts the pumps for this connection.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the send channel, which stops the write pump. Safe to call
// twice: teardown can reach the client via both the error and close paths.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.Unregister(c.userID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("read error")
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			// Malformed frame: drop it, keep the connection.
			c.log.Warn().Err(err).Msg("malformed frame")
			continue
		}

		c.hub.HandleFrame(c.userID, env)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub; say goodbye on the wire.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				c.log.Warn().Err(err).Msg("encode error")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Drain whatever queued up behind this frame, one frame per
			// websocket message so the peer's decoder sees clean JSON.
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				extra, err := json.Marshal(next)
				if err != nil {
					continue
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
