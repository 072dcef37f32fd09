package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// --- Request DTOs ---

// CreateConversationRequest opens (or finds) the conversation with another identity
type CreateConversationRequest struct {
	ParticipantID uuid.UUID  `json:"participantId" binding:"required"`
	ApplicationID *uuid.UUID `json:"applicationId,omitempty"`
}

// SendMessageRequest is a text message. Attachments are sent as multipart with
// the same content field as caption.
type SendMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// --- Response DTOs ---

// MessageResponse is a message with its attachment decoded
type MessageResponse struct {
	ID             uuid.UUID                  `json:"id"`
	ConversationID uuid.UUID                  `json:"conversationId"`
	SenderID       uuid.UUID                  `json:"senderId"`
	Type           string                     `json:"type" example:"text"`
	Content        string                     `json:"content"`
	Attachment     *models.AttachmentEnvelope `json:"attachment,omitempty"`
	SentAt         time.Time                  `json:"sentAt"`
}

// NewMessageResponse maps a message. For attachments Content is the caption.
func NewMessageResponse(m *models.Message) MessageResponse {
	r := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Type:           "text",
		Content:        m.Content,
		SentAt:         m.SentAt,
	}
	if env, ok := m.Attachment(); ok {
		r.Type = models.AttachmentType
		r.Content = env.Text
		r.Attachment = env
	}
	return r
}

// NewMessageResponses maps a slice of messages
func NewMessageResponses(ms []*models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, NewMessageResponse(m))
	}
	return out
}

// ConversationResponse is a conversation from the caller's point of view
type ConversationResponse struct {
	ID              uuid.UUID  `json:"id"`
	ParticipantID   uuid.UUID  `json:"participantId"`
	ApplicationID   *uuid.UUID `json:"applicationId,omitempty"`
	LastMessage     *string    `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// NewConversationResponse maps a conversation for viewer
func NewConversationResponse(c *models.Conversation, viewer uuid.UUID) ConversationResponse {
	return ConversationResponse{
		ID:              c.ID,
		ParticipantID:   c.Other(viewer),
		ApplicationID:   c.ApplicationID,
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		CreatedAt:       c.CreatedAt,
	}
}
