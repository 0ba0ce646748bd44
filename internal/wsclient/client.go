// Package wsclient is the client-side transport wrapper. It owns exactly
// one websocket connection at a time, redials with a fixed backoff when the
// connection drops unintentionally, and exposes inbound frames and
// connection status as two typed channels with a single consumer each.
package wsclient

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campuschat/internal/models"
)

const (
	reconnectInterval = 2 * time.Second

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var ErrClosed = errors.New("wsclient: connection closed")
var ErrBufferFull = errors.New("wsclient: send buffer full")

// Client manages the websocket connection to the chat server.
type Client struct {
	url string
	log zerolog.Logger

	frames   chan models.Envelope
	status   chan bool
	outgoing chan models.Envelope

	mu          sync.Mutex
	conn        *websocket.Conn
	intentional bool
	started     bool
}

func New(url string, log zerolog.Logger) *Client {
	return &Client{
		url:      url,
		log:      log,
		frames:   make(chan models.Envelope, 32),
		status:   make(chan bool, 8),
		outgoing: make(chan models.Envelope, 32),
	}
}

// Connect starts the connection manager. Subsequent calls are no-ops; the
// manager keeps redialing on its own until Close.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	go c.run()
}

// Frames returns the inbound frame channel. Single consumer.
func (c *Client) Frames() <-chan models.Envelope {
	return c.frames
}

// Status reports connection state changes: true on connect, false on
// disconnect. Single consumer.
func (c *Client) Status() <-chan bool {
	return c.status
}

// SendFrame queues a frame for the write pump.
func (c *Client) SendFrame(env models.Envelope) error {
	c.mu.Lock()
	closed := c.intentional
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case c.outgoing <- env:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close shuts the connection down for good; an intentional close suppresses
// the reconnect loop.
func (c *Client) Close() {
	c.mu.Lock()
	c.intentional = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	}
}

func (c *Client) run() {
	for {
		if c.isIntentional() {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			c.log.Warn().Err(err).Msg("dial failed, retrying")
			time.Sleep(reconnectInterval)
			continue
		}

		c.mu.Lock()
		if c.intentional {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.notifyStatus(true)

		done := make(chan struct{})
		go c.writePump(conn, done)
		c.readLoop(conn)
		close(done)
		conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		c.notifyStatus(false)

		if c.isIntentional() {
			return
		}
		time.Sleep(reconnectInterval)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.log.Warn().Err(err).Msg("malformed frame from server")
			continue
		}
		c.frames <- env
	}
}

func (c *Client) writePump(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.outgoing:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) isIntentional() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intentional
}

// notifyStatus drops the update when the consumer lags; only the latest
// state matters to it anyway.
func (c *Client) notifyStatus(connected bool) {
	select {
	case c.status <- connected:
	default:
	}
}
