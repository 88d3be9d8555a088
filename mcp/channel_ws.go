package mcp

import (
	"context"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketChannel adapts a WebSocket connection to the Channel interface,
// one protocol message per WebSocket text frame.
type WebSocketChannel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketChannel wraps an established WebSocket connection. The
// channel takes ownership of the connection and closes it on Close.
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	return &WebSocketChannel{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

// Send writes one message as a text frame. Writes are serialized; gorilla
// connections support at most one concurrent writer.
func (c *WebSocketChannel) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Receive blocks on the next frame. Closing the channel closes the
// underlying connection, which unblocks the pending read with an error.
func (c *WebSocketChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrChannelClosed
	default:
	}

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		select {
		case <-c.closed:
			return nil, ErrChannelClosed
		default:
		}
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) {
			// Orderly peer shutdown reads as a clean end of stream.
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

// Close is idempotent: it closes the WebSocket connection exactly once and
// unblocks any pending Receive.
func (c *WebSocketChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
