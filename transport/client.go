package transport

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client wraps one websocket connection. Reads are pumped serially
// through a dispatch callback; writes go through a buffered channel so
// a slow peer never blocks a sender.
type Client struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	log    *slog.Logger
}

func NewClient(id, userID string, conn *websocket.Conn, log *slog.Logger) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		log:    log,
	}
}

// ReadPump blocks until the connection dies, decoding frames and
// handing them to dispatch one at a time. onClose always runs, once.
func (c *Client) ReadPump(dispatch func(Frame), onClose func()) {
	// send is never closed: a late Unicast racing the teardown must not
	// panic. Closing done releases the write pump instead.
	defer func() {
		onClose()
		close(c.done)
		c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("websocket read failed", "connection", c.ID, "user", c.UserID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Warn("malformed frame dropped", "connection", c.ID, "error", err)
			continue
		}
		dispatch(frame)
	}
}

// WritePump drains the send channel and keeps the peer alive with
// pings. It exits when the session is torn down or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue is non-blocking. A full buffer means the peer is not keeping
// up; the frame is dropped, push is best effort.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
