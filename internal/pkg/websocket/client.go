package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Frame types
const (
	FrameHistory = "history"
	FrameMessage = "message"
	FrameError   = "error"
	FrameSend    = "send"
	FrameSent    = "sent"
)

// Frame is one JSON object on the socket
type Frame struct {
	Type     string                `json:"type"`
	Content  string                `json:"content,omitempty"`
	Message  *dto.MessageResponse  `json:"message,omitempty"`
	Messages []dto.MessageResponse `json:"messages,omitempty"`
	Error    *dto.ErrorDetail      `json:"error,omitempty"`
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	u := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = struct{}{}
		}
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return u
}

// Client is one participant's connection to one conversation
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	identityID     uuid.UUID
	conversationID uuid.UUID
	messages       MessageService
	seen           *realtime.Feed

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	logger zerolog.Logger
}

func (c *Client) close() {
	c.closeOnce.Do(c.cancel)
}

// enqueue hands a frame to writePump. A client that cannot keep up is dropped.
func (c *Client) enqueue(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.logger.Error().Err(err).Str("frame", f.Type).Msg("Failed to marshal frame")
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.logger.Warn().Msg("Send buffer full, closing connection")
		c.close()
	}
}

// feedPump forwards bus deliveries the client has not seen yet
func (c *Client) feedPump(deliveries <-chan realtime.Delivery) {
	defer c.close()
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if !c.seen.Mark(d.ID) {
				continue
			}
			var m models.Message
			if err := d.Decode(&m); err != nil {
				c.logger.Warn().Err(err).Str("message_id", d.ID).Msg("Dropping undecodable delivery")
				continue
			}
			resp := dto.NewMessageResponse(&m)
			c.enqueue(Frame{Type: FrameMessage, Message: &resp})
		case <-c.ctx.Done():
			return
		}
	}
}

// readPump reads client frames until the connection fails or the client closes
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Warn().Err(err).Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().Err(err).Msg("WebSocket closed")
			}
			return
		}
		c.handleFrame(data)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
