package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
	maxFrameSize   = 64 << 10
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrBufferFull = errors.New("connection send buffer full")
)

// Conn wraps a websocket. Writes go through a buffered channel drained by a
// single writer goroutine, so Send is safe for concurrent use.
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Start launches the write loop. Call exactly once.
func (c *Conn) Start() {
	go c.writeLoop()
}

// Send queues payload. A client too slow to drain its buffer is disconnected.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.CloseWith(websocket.ClosePolicyViolation, "send buffer full")
		return ErrBufferFull
	}
}

func (c *Conn) Close() {
	c.CloseWith(websocket.CloseGoingAway, "server shutdown")
}

// CloseWith sends a close frame with code and reason and tears the socket down.
func (c *Conn) CloseWith(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// ReadLoop configures read limits and pong-extended deadlines, then hands
// each text frame to fn until the peer goes away or the conn is closed.
func (c *Conn) ReadLoop(fn func(data []byte)) error {
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		fn(data)
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.CloseWith(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.CloseWith(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

func (c *Conn) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
