package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
)

const sendTimeout = 10 * time.Second

// handleFrame processes one inbound frame. Only "send" is accepted. The sender
// gets a "sent" ack and the bus copy of the same message is skipped; if the bus
// copy won the race it already went out as a "message" frame and no ack follows.
func (c *Client) handleFrame(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.enqueue(Frame{Type: FrameError, Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Frame is not valid JSON")})
		return
	}

	switch f.Type {
	case FrameSend:
		ctx, cancel := context.WithTimeout(c.ctx, sendTimeout)
		defer cancel()

		msg, err := c.messages.SendMessage(ctx, c.identityID, c.conversationID, f.Content, nil)
		if err != nil {
			_, detail := middleware.ErrorStatus(err)
			c.logger.Debug().Err(err).Msg("Send rejected")
			c.enqueue(Frame{Type: FrameError, Error: detail})
			return
		}
		if !c.seen.Mark(msg.ID.String()) {
			return
		}
		resp := dto.NewMessageResponse(msg)
		c.enqueue(Frame{Type: FrameSent, Message: &resp})
	default:
		c.enqueue(Frame{Type: FrameError, Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Unknown frame type").WithDetails(f.Type)})
	}
}
