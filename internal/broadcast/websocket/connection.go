package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/chiwar/fightcore/pkg/streaming"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const (
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

var errClosed = errors.New("websocket connection closed")

// connection owns one WebSocket link. Snapshots are coalesced per fight so a
// burst of updates to one fight costs a single write, and only the write loop
// bound to the current socket writes data frames.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	done   chan struct{}
	wake   chan struct{}

	// latest holds every fight's newest snapshot and is replayed in full
	// after a reconnect. pending lists fights not yet written, oldest first.
	latest  map[uuid.UUID][]byte
	pending []uuid.UUID
	queued  map[uuid.UUID]bool

	wsURL  string
	secret string

	// redial and firstBackoff drive reconnect; tests shorten them.
	redial       func() (*ws.Conn, error)
	firstBackoff time.Duration

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	c := &connection{
		done:         make(chan struct{}),
		wake:         make(chan struct{}, 1),
		latest:       make(map[uuid.UUID][]byte),
		queued:       make(map[uuid.UUID]bool),
		firstBackoff: time.Second,
		logger:       logger,
	}
	c.redial = c.dialOnce
	return c
}

// dial connects to the server and starts the loops for the new socket.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.install(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// install makes conn current and starts its loops. It reports false and
// closes conn when the connection was shut down meanwhile.
func (c *connection) install(conn *ws.Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
	c.signal()
	return true
}

func (c *connection) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// send records data as the fight's newest snapshot and queues the fight for
// writing. A fight already queued is written once, with the newest data.
func (c *connection) send(fightID uuid.UUID, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	c.latest[fightID] = data
	if !c.queued[fightID] {
		c.queued[fightID] = true
		c.pending = append(c.pending, fightID)
	}
	c.mu.Unlock()

	c.signal()
	return nil
}

// takePending hands the queued snapshots to the loop writing on conn. It
// reports false, taking nothing, when conn is no longer current.
func (c *connection) takePending(conn *ws.Conn) ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return nil, false
	}
	batch := make([][]byte, 0, len(c.pending))
	for _, id := range c.pending {
		batch = append(batch, c.latest[id])
		delete(c.queued, id)
	}
	c.pending = c.pending[:0]
	return batch, true
}

// writeLoop writes queued snapshots to conn until shutdown, a write error,
// or a reconnect replaces conn.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		batch, current := c.takePending(conn)
		if !current {
			// pass the wake-up on to the loop of the current socket
			c.signal()
			return
		}
		for _, data := range batch {
			if err := write(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.reconnect(conn)
				return
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop notices a dropped link even while no updates are written.
// Server acks are only logged.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			c.reconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		c.logger.Debug("WebSocket ack", "for", ack.For)
	}
}

// reconnect replaces the failed socket, backing off exponentially between
// attempts. Only the first caller for a given socket reconnects. The new
// socket receives every fight's latest snapshot before it goes live.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || failed == nil || c.conn != failed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()
	_ = failed.Close()

	backoff := c.firstBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt)
		conn, err := c.redial()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		replay, ok := c.replaySet()
		if !ok {
			_ = conn.Close()
			return
		}
		if err := replayAll(conn, replay); err != nil {
			c.logger.Warn("Failed to replay fight snapshots after reconnect", "error", err)
			_ = conn.Close()
			continue
		}
		if c.install(conn) {
			c.logger.Info("WebSocket reconnected", "attempt", attempt, "replayed", len(replay))
		}
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// replaySet clears the queue and returns every fight's latest snapshot. It
// reports false once the connection is closed.
func (c *connection) replaySet() ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	replay := make([][]byte, 0, len(c.latest))
	for _, data := range c.latest {
		replay = append(replay, data)
	}
	c.pending = c.pending[:0]
	clear(c.queued)
	return replay, true
}

func replayAll(conn *ws.Conn, replay [][]byte) error {
	for _, data := range replay {
		if err := write(conn, data); err != nil {
			return err
		}
	}
	return nil
}

// close sends a close frame and stops the loops. Later sends fail.
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
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	// WriteControl may run alongside a data write in the write loop
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return conn.Close()
}
