package websocket

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/app/services"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
)

const historyLimit = 50

// MessageService is the part of the messaging service a socket needs
type MessageService interface {
	Subscribe(ctx context.Context, identityID, conversationID uuid.UUID, seen []uuid.UUID) (<-chan realtime.Delivery, error)
	ListMessages(ctx context.Context, identityID, conversationID uuid.UUID, before *time.Time, limit int) ([]*models.Message, error)
	SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, text string, file *services.Upload) (*models.Message, error)
}

// Handler for WebSocket connections
type Handler struct {
	hub      *Hub
	messages MessageService
	upgrader gorilla.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. An empty allowedOrigins accepts
// only same-origin upgrades.
func NewHandler(hub *Hub, messages MessageService, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		messages: messages,
		upgrader: newUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// HandleConnection godoc
// @Summary Stream a conversation over WebSocket
// @Description Upgrades to a WebSocket. The server first sends a "history" frame with recent messages, then a "message" frame per new message, never repeating one already sent. Clients post with {"type":"send","content":"..."}.
// @Tags conversations
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param access_token query string false "Access token when the Authorization header cannot be set"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} dto.ErrorResponse "Invalid conversation ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Not a participant"
// @Router /conversations/{id}/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.HandleAPIError(c, apperrors.NewBadRequestError("Invalid conversation ID"))
		return
	}
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		middleware.HandleAPIError(c, apperrors.ErrNoSession)
		return
	}

	// The connection outlives the request, so it gets its own context.
	ctx, cancel := context.WithCancel(context.Background())

	// Subscribe before loading history so nothing sent in between is lost;
	// the client's feed drops whatever shows up in both.
	deliveries, err := h.messages.Subscribe(ctx, identityID, conversationID, nil)
	if err != nil {
		cancel()
		middleware.HandleAPIError(c, err)
		return
	}
	history, err := h.messages.ListMessages(ctx, identityID, conversationID, nil, historyLimit)
	if err != nil {
		cancel()
		middleware.HandleAPIError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		h.logger.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:            h.hub,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		identityID:     identityID,
		conversationID: conversationID,
		messages:       h.messages,
		seen:           realtime.NewFeed(0),
		ctx:            ctx,
		cancel:         cancel,
		logger: h.logger.With().
			Str("conversation_id", conversationID.String()).
			Str("identity_id", identityID.String()).
			Logger(),
	}
	if !h.hub.Register(client) {
		cancel()
		conn.Close()
		return
	}

	for _, m := range history {
		client.seen.Mark(m.ID.String())
	}
	client.enqueue(Frame{Type: FrameHistory, Messages: dto.NewMessageResponses(history)})

	go client.writePump()
	go client.feedPump(deliveries)
	go client.readPump()

	client.logger.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("WebSocket connection established")
}
