package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttachmentType is the envelope discriminator for file messages
const AttachmentType = "file"

// Conversation is an unordered pair of identities. The pair is stored normalised so
// that ParticipantLow sorts before ParticipantHigh.
type Conversation struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ParticipantLow  uuid.UUID  `json:"participantLow" db:"participant_low"`
	ParticipantHigh uuid.UUID  `json:"participantHigh" db:"participant_high"`
	ApplicationID   *uuid.UUID `json:"applicationId,omitempty" db:"application_id"`
	LastMessage     *string    `json:"lastMessage,omitempty" db:"last_message"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty" db:"last_message_time"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// OrderedPair normalises two participants into (low, high)
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() <= b.String() {
		return a, b
	}
	return b, a
}

// Includes reports whether id is one of the two participants
func (c *Conversation) Includes(id uuid.UUID) bool {
	return c.ParticipantLow == id || c.ParticipantHigh == id
}

// Other returns the participant that is not id
func (c *Conversation) Other(id uuid.UUID) uuid.UUID {
	if c.ParticipantLow == id {
		return c.ParticipantHigh
	}
	return c.ParticipantLow
}

// Message belongs to one conversation. Content is either plain text or a JSON
// AttachmentEnvelope.
type Message struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversationId" db:"conversation_id"`
	SenderID       uuid.UUID `json:"senderId" db:"sender_id"`
	Content        string    `json:"content" db:"content"`
	SentAt         time.Time `json:"sentAt" db:"sent_at"`
}

// AttachmentEnvelope is the wire format stored in Message.Content for file messages
type AttachmentEnvelope struct {
	Type     string `json:"type"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	Bucket   string `json:"bucket"`
	Text     string `json:"text,omitempty"`
}

// Encode renders the envelope as message content
func (e AttachmentEnvelope) Encode() (string, error) {
	e.Type = AttachmentType
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Attachment decodes the content as an attachment envelope. Plain text, and JSON
// that is not a file envelope, report false.
func (m *Message) Attachment() (*AttachmentEnvelope, bool) {
	if len(m.Content) == 0 || m.Content[0] != '{' {
		return nil, false
	}
	var env AttachmentEnvelope
	if err := json.Unmarshal([]byte(m.Content), &env); err != nil {
		return nil, false
	}
	if env.Type != AttachmentType || (env.FilePath == "" && env.FileURL == "") {
		return nil, false
	}
	return &env, true
}

// Preview is the conversation list text for this message
func (m *Message) Preview() string {
	if env, ok := m.Attachment(); ok {
		if env.Text != "" {
			return env.Text
		}
		return "📎 " + env.FileName
	}
	return m.Content
}
