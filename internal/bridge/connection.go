package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 4096
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection manages a WebSocket connection. Each live socket has exactly
// one read and one write goroutine; a failed socket is replaced by
// reconnect and its goroutines stop.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	stop   chan struct{} // closed when conn is replaced or shut down
	wmu    sync.Mutex    // serializes writes on conn
	sendCh chan []byte
	ackCh  chan AckMessage
	done   chan struct{}
	closed bool

	wsURL  string
	secret string

	// hello is replayed first on every reconnect
	cachedHello []byte
	onEvent     func(EventPayload)

	// reconnect backoff start, shortened by tests
	initialBackoff time.Duration

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh:         make(chan []byte, sendChSize),
		ackCh:          make(chan AckMessage, ackChSize),
		done:           make(chan struct{}),
		initialBackoff: time.Second,
		logger:         logger,
	}
}

// dial connects and starts the read/write loops.
func (c *connection) dial(ctx context.Context, rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce(ctx)
	if err != nil {
		return err
	}
	c.start(conn)
	return nil
}

func (c *connection) dialOnce(ctx context.Context) (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// start makes conn the live socket. It reports false when the connection
// was shut down meanwhile.
func (c *connection) start(conn *ws.Conn) bool {
	stop := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.conn = conn
	c.stop = stop
	c.mu.Unlock()

	go c.writeLoop(conn, stop)
	go c.readLoop(conn, stop)
	return true
}

// fail retires conn and starts a reconnect, once per socket.
func (c *connection) fail(conn *ws.Conn, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	close(c.stop)
	c.mu.Unlock()

	_ = conn.Close()
	c.logger.Warn("WebSocket connection lost", "error", err)
	go c.reconnect()
}

func (c *connection) live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

func (c *connection) write(conn *ws.Conn, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data := <-c.sendCh:
			select {
			case <-stop:
				// socket retired while we were waiting, hand the message on
				c.send(data)
				return
			default:
			}
			if err := c.write(conn, data); err != nil {
				c.fail(conn, err)
				return
			}
		}
	}
}

// readLoop routes acks to ackCh and UI events to onEvent.
func (c *connection) readLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case <-stop:
			default:
				c.fail(conn, err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(message, &in); err != nil {
			c.logger.Debug("Malformed message received", "raw", string(message))
			continue
		}

		switch in.Type {
		case TypeAck:
			select {
			case c.ackCh <- AckMessage{Type: in.Type, For: in.For}:
			default:
				c.logger.Debug("Ack channel full, dropping", "for", in.For)
			}
		case TypeEvent:
			var ev EventPayload
			if err := json.Unmarshal(in.Payload, &ev); err != nil || ev.Command == "" {
				c.logger.Warn("Invalid event from renderer", "raw", string(message))
				continue
			}
			c.mu.Lock()
			handler := c.onEvent
			c.mu.Unlock()
			if handler != nil {
				handler(ev)
			}
		default:
			c.logger.Debug("Unknown message type", "type", in.Type)
		}
	}
}

// reconnect re-dials with exponential backoff, replays the cached hello and
// restarts the loops.
func (c *connection) reconnect() {
	backoff := c.initialBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
		c.logger.Info("Reconnecting to renderer", "attempt", attempt)

		conn, err := c.dialOnce(context.Background())
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		cached := c.cachedHello
		c.mu.Unlock()
		if cached != nil {
			if err := c.write(conn, cached); err != nil {
				c.logger.Warn("Failed to replay hello after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		if c.start(conn) {
			c.logger.Info("Renderer reconnected", "attempt", attempt)
		}
		return
	}

	c.logger.Error("Renderer reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// sendAndWait sends data and blocks until the matching ack arrives.
func (c *connection) sendAndWait(ctx context.Context, data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	if conn != nil {
		close(c.stop)
	}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.wmu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	c.wmu.Unlock()
	return conn.Close()
}
