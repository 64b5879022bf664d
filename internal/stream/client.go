package stream

import (
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/tomcat-viz/trialviz/internal/queue"
)

const (
	writeWait    = 10 * time.Second
	maxQueuedMsg = 10_000
)

// client is one connected viewer with a single write goroutine. Frames
// are staged in a queue and flushed by the pump, so a slow reader never
// blocks Broadcast.
type client struct {
	conn   *ws.Conn
	outbox *queue.Queue[[]byte]
	notify chan struct{}
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

func newClient(conn *ws.Conn, logger *slog.Logger) *client {
	return &client{
		conn:   conn,
		outbox: queue.New[[]byte](),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue stages a frame for the write pump. Drops when the outbox is
// saturated.
func (c *client) enqueue(data []byte) {
	if c.outbox.Len() >= maxQueuedMsg {
		c.logger.Warn("Viewer outbox full, dropping frame")
		return
	}
	c.outbox.Push(data)
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// writePump drains the outbox and writes frames to the connection.
func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
			for _, data := range c.outbox.Drain() {
				if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
					return
				}
				if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
					c.logger.Warn("WebSocket write error", "error", err)
					return
				}
			}
		}
	}
}

// readUntilClose discards inbound messages until the peer disconnects.
func (c *client) readUntilClose() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// close sends a close frame and shuts down the pump.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		_ = c.conn.Close()
	})
}
