package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/midiwire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ControlFunc handles one validated control frame and returns the payload of
// the acknowledgement.
type ControlFunc func(msg *ControlMessage) (interface{}, error)

// Client is a middleman between the websocket connection and a session. It
// implements session.Emitter.
type Client struct {
	Hub *Hub

	// The websocket connection. Nil in tests that only exercise Emit.
	Conn *websocket.Conn

	SessionID uuid.UUID

	// Buffered channel of outbound frames.
	Send chan []byte

	encoder *midiwire.Encoder
	logger  logger.ILogger

	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

// NewClient builds a client; midi adds raw MIDI bytes to every frame.
func NewClient(hub *Hub, conn *websocket.Conn, buffer int, midi bool, channel int, log logger.ILogger) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	c := &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, buffer),
		logger: log,
	}
	if midi {
		c.encoder = midiwire.NewEncoder(channel)
	}
	return c
}

// Emit queues one event. It never blocks: when the buffer is full the frame is
// dropped.
func (c *Client) Emit(evt events.MusicalEvent) {
	frame := Frame{Type: string(evt.Kind()), SessionID: c.SessionID.String(), Data: evt}
	if c.encoder != nil {
		frame.Midi = c.encoder.Encode(evt)
	}
	data, err := encodeFrame(frame)
	if err != nil {
		c.logger.Error("WS", "Failed to encode frame", map[string]interface{}{
			"session_id": c.SessionID.String(), "kind": string(evt.Kind()), "error": err.Error(),
		})
		return
	}
	c.enqueue(data)
}

// SendFrame queues a non-musical frame.
func (c *Client) SendFrame(f Frame) {
	if f.SessionID == "" {
		f.SessionID = c.SessionID.String()
	}
	data, err := encodeFrame(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		if n := c.dropped.Add(1); n == 1 || n%100 == 0 {
			c.logger.Warn("WS", "Client send buffer full, dropping frame", map[string]interface{}{
				"session_id": c.SessionID.String(), "dropped": n,
			})
		}
		return false
	}
}

// Dropped counts frames lost to a full buffer.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// closeSend is idempotent; later Emits are ignored.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump pumps control frames from the websocket connection to onControl.
func (c *Client) readPump(onControl ControlFunc) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID.String(), "error": err.Error(),
				})
			}
			break
		}
		c.handleControl(raw, onControl)
	}
}

func (c *Client) handleControl(raw []byte, onControl ControlFunc) {
	msg, err := DecodeControl(raw)
	if err != nil {
		c.SendFrame(ErrorFrame(c.SessionID.String(), err))
		return
	}
	if msg.Type == ControlPing {
		c.SendFrame(Frame{Type: "pong"})
		return
	}
	if onControl == nil {
		return
	}
	res, err := onControl(msg)
	if err != nil {
		c.SendFrame(ErrorFrame(c.SessionID.String(), err))
		return
	}
	c.SendFrame(Frame{Type: "ack", Data: map[string]interface{}{"control": msg.Type, "result": res}})
}

// writePump pumps frames from Send to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one frame per message so clients can JSON.parse each
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
