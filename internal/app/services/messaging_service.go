package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/filestorage"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/watermark"
)

// Policy violation codes
const (
	PolicyContainsEmail = "MESSAGE_CONTAINS_EMAIL"
	PolicyContainsPhone = "MESSAGE_CONTAINS_PHONE"
)

var digitRun = regexp.MustCompile(`\d{5,}`)

const (
	watermarkTimeout = 30 * time.Second
	cleanupTimeout   = 10 * time.Second
)

// ValidateMessagePolicy rejects text that looks like contact details: any '@' or
// a run of five or more digits. Rejected text is never stored or rewritten.
func ValidateMessagePolicy(text string) error {
	if strings.Contains(text, "@") {
		return apperrors.NewPolicyViolationError(PolicyContainsEmail)
	}
	if digitRun.MatchString(text) {
		return apperrors.NewPolicyViolationError(PolicyContainsPhone)
	}
	return nil
}

// Watermarker stamps uploaded attachments
type Watermarker interface {
	Enabled() bool
	Apply(ctx context.Context, req watermark.Request) error
}

// ObjectSigner mints and checks download tokens for storage paths
type ObjectSigner interface {
	SignObjectPath(path string, ttl time.Duration) (string, time.Time, error)
	VerifyObjectPath(token, path string) error
}

// MessagingConfig holds messaging limits and URLs
type MessagingConfig struct {
	FilesBaseURL  string // e.g. https://api.example.com/api/v1/files
	SignedURLTTL  time.Duration
	PageMax       int
	MaxUploadSize int64
}

// SignedURL is a time-limited attachment download link
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MessagingService sends and lists conversation messages
type MessagingService struct {
	chats      ChatStore
	identities IdentityReader
	roles      RoleSource
	storage    filestorage.FileStorage
	marker     Watermarker
	signer     ObjectSigner
	bus        EventPublisher
	subscriber EventSubscriber
	cfg        MessagingConfig
	logger     zerolog.Logger

	background sync.WaitGroup
}

// NewMessagingService creates a new MessagingService
func NewMessagingService(
	chats ChatStore,
	identities IdentityReader,
	roles RoleSource,
	storage filestorage.FileStorage,
	marker Watermarker,
	signer ObjectSigner,
	bus EventPublisher,
	subscriber EventSubscriber,
	cfg MessagingConfig,
	logger zerolog.Logger,
) *MessagingService {
	if cfg.PageMax <= 0 {
		cfg.PageMax = 200
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	return &MessagingService{
		chats:      chats,
		identities: identities,
		roles:      roles,
		storage:    storage,
		marker:     marker,
		signer:     signer,
		bus:        bus,
		subscriber: subscriber,
		cfg:        cfg,
		logger:     logger.With().Str("component", "messaging").Logger(),
	}
}

// Wait blocks until background watermark calls have finished
func (s *MessagingService) Wait() {
	s.background.Wait()
}

// ListConversations returns the identity's conversations, most recent first
func (s *MessagingService) ListConversations(ctx context.Context, identityID uuid.UUID) ([]*models.Conversation, error) {
	convs, err := s.chats.ListConversations(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	return convs, nil
}

// GetOrCreateConversation opens the conversation between a and b. Calling it with
// the participants swapped returns the same conversation.
func (s *MessagingService) GetOrCreateConversation(ctx context.Context, a, b uuid.UUID, applicationID *uuid.UUID) (*models.Conversation, error) {
	if a == b {
		return nil, apperrors.NewBadRequestError("Cannot start a conversation with yourself")
	}
	if _, err := s.identities.GetByID(ctx, b); err != nil {
		return nil, err
	}
	return s.chats.GetOrCreateConversation(ctx, a, b, applicationID)
}

// participantConversation loads the conversation and checks identityID takes part
func (s *MessagingService) participantConversation(ctx context.Context, identityID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.chats.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Includes(identityID) {
		return nil, apperrors.ErrNotAParticipant
	}
	return conv, nil
}

// ListMessages returns messages in send order. limit is capped; before pages
// backwards from a timestamp.
func (s *MessagingService) ListMessages(ctx context.Context, identityID, conversationID uuid.UUID, before *time.Time, limit int) ([]*models.Message, error) {
	if _, err := s.participantConversation(ctx, identityID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.PageMax {
		limit = s.cfg.PageMax
	}
	msgs, err := s.chats.ListMessages(ctx, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// SendMessage stores a text message or an attachment with an optional caption.
// The content policy is checked before anything is written.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, text string, file *Upload) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		return nil, apperrors.ErrEmptyMessage
	}
	if err := ValidateMessagePolicy(text); err != nil {
		return nil, err
	}
	if file != nil && s.cfg.MaxUploadSize > 0 && file.Size > s.cfg.MaxUploadSize {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("File exceeds the %d byte limit", s.cfg.MaxUploadSize))
	}

	conv, err := s.participantConversation(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ConversationID: conv.ID, SenderID: senderID, Content: text}
	var stored *filestorage.ObjectInfo
	if file != nil {
		env, info, err := s.storeAttachment(ctx, conv.ID, file, text)
		if err != nil {
			return nil, err
		}
		stored = info
		if msg.Content, err = env.Encode(); err != nil {
			s.discardAttachment(info)
			return nil, fmt.Errorf("error encoding attachment: %w", err)
		}
	}

	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		if stored != nil {
			s.discardAttachment(stored)
		}
		return nil, err
	}
	if stored != nil && s.roles.Get(ctx, senderID).Role == models.RoleStudent {
		s.watermark(stored, conv.ID)
	}

	if err := s.chats.UpdatePreview(ctx, conv.ID, msg.Preview(), msg.SentAt); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Failed to update conversation preview")
	}
	if s.bus != nil {
		if err := s.bus.Publish(realtime.TopicChatMessages, conv.ID.String(), msg.ID.String(), msg); err != nil {
			s.logger.Warn().Err(err).Str("message_id", msg.ID.String()).Msg("Failed to publish message")
		}
	}
	return msg, nil
}

func (s *MessagingService) storeAttachment(ctx context.Context, conversationID uuid.UUID, file *Upload, caption string) (*models.AttachmentEnvelope, *filestorage.ObjectInfo, error) {
	objectPath := filestorage.ObjectName(path.Join("conversations", conversationID.String()), file.Name)
	info, err := s.storage.Put(ctx, objectPath, file.Body, file.ContentType)
	if err != nil {
		return nil, nil, fmt.Errorf("error uploading attachment: %w", err)
	}

	return &models.AttachmentEnvelope{
		Type:     models.AttachmentType,
		FileName: path.Base(file.Name),
		FilePath: info.Path,
		FileURL:  info.URL,
		FileType: info.ContentType,
		FileSize: info.Size,
		Bucket:   info.Bucket,
		Text:     caption,
	}, info, nil
}

// discardAttachment removes an uploaded object whose message was never stored.
// It runs detached from the request so a cancelled upload still cleans up.
func (s *MessagingService) discardAttachment(info *filestorage.ObjectInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.storage.Delete(ctx, info.Path); err != nil {
		s.logger.Warn().Err(err).Str("path", info.Path).Msg("Failed to remove orphaned attachment")
	}
}

// watermark runs in the background; failures are only logged
func (s *MessagingService) watermark(info *filestorage.ObjectInfo, conversationID uuid.UUID) {
	if s.marker == nil || !s.marker.Enabled() {
		return
	}
	req := watermark.Request{
		Bucket:         info.Bucket,
		Path:           info.Path,
		ContentType:    info.ContentType,
		ConversationID: conversationID.String(),
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), watermarkTimeout)
		defer cancel()
		if err := s.marker.Apply(ctx, req); err != nil {
			s.logger.Warn().Err(err).Str("path", req.Path).Msg("Watermark request failed")
		}
	}()
}

// SignedURL returns a time-limited download link for a message attachment
func (s *MessagingService) SignedURL(ctx context.Context, identityID, messageID uuid.UUID) (*SignedURL, error) {
	msg, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.participantConversation(ctx, identityID, msg.ConversationID); err != nil {
		return nil, err
	}
	env, ok := msg.Attachment()
	if !ok || env.FilePath == "" {
		return nil, apperrors.NewBadRequestError("Message has no stored attachment")
	}

	token, expires, err := s.signer.SignObjectPath(env.FilePath, s.cfg.SignedURLTTL)
	if err != nil {
		return nil, err
	}
	link := strings.TrimRight(s.cfg.FilesBaseURL, "/") + "/" + env.FilePath + "?token=" + url.QueryEscape(token)
	return &SignedURL{URL: link, ExpiresAt: expires}, nil
}

// Download opens objectPath if token was signed for it and has not expired
func (s *MessagingService) Download(ctx context.Context, objectPath, token string) (io.ReadCloser, error) {
	objectPath = strings.TrimPrefix(objectPath, "/")
	if err := s.signer.VerifyObjectPath(token, objectPath); err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.ErrSignedURLExpired
		}
		return nil, apperrors.ErrSignedURLMalformed
	}
	return s.storage.Open(ctx, objectPath)
}

// Subscribe streams new messages of one conversation to a participant. Ids in
// seen, typically the history the client already loaded, are never delivered.
func (s *MessagingService) Subscribe(ctx context.Context, identityID, conversationID uuid.UUID, seen []uuid.UUID) (<-chan realtime.Delivery, error) {
	if _, err := s.participantConversation(ctx, identityID, conversationID); err != nil {
		return nil, err
	}
	if s.subscriber == nil {
		return nil, errors.New("realtime bus not configured")
	}
	in, err := s.subscriber.Subscribe(ctx, realtime.TopicChatMessages, conversationID.String())
	if err != nil {
		return nil, err
	}
	feed := realtime.NewFeed(0)
	for _, id := range seen {
		feed.Mark(id.String())
	}
	return feed.Stream(ctx, in), nil
}
