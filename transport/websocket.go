package transport

import (
	"c2c-client/contract"
	"c2c-client/domain"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultDialTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	maxFrameSize        = 64 * 1024
)

// WebsocketDialer opens JSON text-frame connections to the chat endpoint.
type WebsocketDialer struct {
	url          string
	writeTimeout time.Duration
	dialer       *websocket.Dialer
}

func NewWebsocketDialer(url string, handshakeTimeout, writeTimeout time.Duration) *WebsocketDialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultDialTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &WebsocketDialer{
		url:          url,
		writeTimeout: writeTimeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}
}

// Dial ignores the identity: the server learns it from the join frame.
func (d *WebsocketDialer) Dial(ctx context.Context, _ domain.SessionIdentity) (contract.Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}
	conn.SetReadLimit(maxFrameSize)
	return &wsConn{conn: conn, writeTimeout: d.writeTimeout}, nil
}

// wsConn serialises writes; gorilla allows one concurrent writer only.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
