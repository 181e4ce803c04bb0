package websocket

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	outboxSize = 10_000
	writeWait  = 10 * time.Second
	drainWait  = 5 * time.Second
)

// connection owns the socket. Only writeLoop writes to it.
type connection struct {
	mu      sync.Mutex
	conn    *ws.Conn
	outbox  chan []byte
	stopped chan struct{} // closed when writeLoop returns
	closed  bool
	drops   int

	log zerolog.Logger
}

func newConnection(logger zerolog.Logger) *connection {
	return &connection{
		outbox:  make(chan []byte, outboxSize),
		stopped: make(chan struct{}),
		log:     logger,
	}
}

// dial opens the socket and starts writeLoop.
func (c *connection) dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	return nil
}

// writeLoop sends queued messages in order, then a close frame once the
// outbox is closed. A write error ends the loop; later messages are dropped.
func (c *connection) writeLoop() {
	defer close(c.stopped)
	for data := range c.outbox {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.log.Warn().Err(err).Msg("WebSocket SetWriteDeadline error")
			return
		}
		if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
			c.log.Warn().Err(err).Msg("WebSocket write error")
			return
		}
	}
	msg := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
	if err := c.conn.WriteControl(ws.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.log.Debug().Err(err).Msg("WebSocket close frame not sent")
	}
}

// send queues data without blocking. A full outbox drops the message.
func (c *connection) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	select {
	case c.outbox <- data:
	default:
		c.drops++
		c.log.Warn().Int("dropped", c.drops).Msg("Telemetry outbox full, dropping message")
	}
	return nil
}

// close stops accepting messages and waits up to drainWait for the outbox
// to empty.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	close(c.outbox)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	select {
	case <-c.stopped:
	case <-time.After(drainWait):
		c.log.Warn().Msg("WebSocket drain timed out")
	}
	return conn.Close()
}
