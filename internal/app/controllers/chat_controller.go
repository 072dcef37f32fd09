package controllers

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/app/services"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
)

// ChatController handles conversations, messages and attachment downloads
type ChatController struct {
	messaging MessagingService
	logger    zerolog.Logger
}

// NewChatController creates a new ChatController
func NewChatController(messaging MessagingService, logger zerolog.Logger) *ChatController {
	return &ChatController{
		messaging: messaging,
		logger:    logger,
	}
}

// ListConversations godoc
// @Summary List conversations
// @Description Conversations the caller takes part in, most recently active first
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ConversationResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail} "Unauthorized: JWT token missing or invalid"
// @Router /conversations [get]
func (c *ChatController) ListConversations(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	convs, err := c.messaging.ListConversations(ctx.Request.Context(), identityID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	out := make([]dto.ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, dto.NewConversationResponse(conv, identityID))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}

// CreateConversation godoc
// @Summary Open a conversation
// @Description Returns the conversation between the caller and the participant, creating it on first use
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateConversationRequest true "Participant"
// @Success 200 {object} dto.APIResponse{data=dto.ConversationResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail} "Unauthorized: JWT token missing or invalid"
// @Router /conversations [post]
func (c *ChatController) CreateConversation(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req dto.CreateConversationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	conv, err := c.messaging.GetOrCreateConversation(ctx.Request.Context(), identityID, req.ParticipantID, req.ApplicationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewConversationResponse(conv, identityID)))
}

// GetMessages godoc
// @Summary Get conversation messages
// @Description Messages in send order. Without a limit the most recent page is returned.
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID" Format(uuid)
// @Param before query string false "Get messages before this timestamp (RFC3339 format)"
// @Param limit query int false "Maximum number of messages to retrieve"
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail} "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Forbidden: caller is not a participant"
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Conversation not found"
// @Router /conversations/{id}/messages [get]
func (c *ChatController) GetMessages(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(ctx, "id", "conversation")
	if !ok {
		return
	}

	var limit int
	if limitStr := ctx.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("limit must be a positive number"))
			return
		}
		limit = n
	}

	var before *time.Time
	if beforeStr := ctx.Query("before"); beforeStr != "" {
		t, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("before must be an RFC3339 timestamp"))
			return
		}
		before = &t
	}

	messages, err := c.messaging.ListMessages(ctx.Request.Context(), identityID, conversationID, before, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewMessageResponses(messages)))
}

// SendMessage godoc
// @Summary Send a message
// @Description Sends a text message as JSON, or a file with an optional caption as multipart/form-data. Text containing an email address or phone number is rejected.
// @Tags chat
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID" Format(uuid)
// @Param request body dto.SendMessageRequest false "Text message"
// @Param file formData file false "Attachment"
// @Param content formData string false "Caption"
// @Success 201 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail} "Empty message or file too large"
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Forbidden: caller is not a participant"
// @Failure 422 {object} dto.APIResponse{error=dto.ErrorDetail} "Message contains contact details"
// @Router /conversations/{id}/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(ctx, "id", "conversation")
	if !ok {
		return
	}

	var (
		text string
		file *services.Upload
	)
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		text = ctx.PostForm("content")
		if _, err := ctx.FormFile("file"); err == nil {
			up, closer, err := formUpload(ctx, "file")
			if err != nil {
				middleware.HandleAPIError(ctx, err)
				return
			}
			defer closer.Close()
			file = up
		}
	} else {
		var req dto.SendMessageRequest
		if !middleware.BindJSON(ctx, &req) {
			return
		}
		text = req.Content
	}

	msg, err := c.messaging.SendMessage(ctx.Request.Context(), identityID, conversationID, text, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewMessageResponse(msg)))
}

// AttachmentURL godoc
// @Summary Signed attachment link
// @Description Returns a time-limited download URL for a message attachment
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID" Format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.SignedURLResponse}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Forbidden: caller is not a participant"
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Message or attachment not found"
// @Router /messages/{id}/attachment-url [get]
func (c *ChatController) AttachmentURL(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	messageID, ok := uuidParam(ctx, "id", "message")
	if !ok {
		return
	}

	signed, err := c.messaging.SignedURL(ctx.Request.Context(), identityID, messageID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SignedURLResponse{URL: signed.URL, ExpiresAt: signed.ExpiresAt}))
}

// Download godoc
// @Summary Download an attachment
// @Description Streams an attachment when the token was signed for this path and has not expired
// @Tags chat
// @Produce octet-stream
// @Param path path string true "Object path"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Token invalid for this path"
// @Failure 410 {object} dto.APIResponse{error=dto.ErrorDetail} "Link expired"
// @Router /files/{path} [get]
func (c *ChatController) Download(ctx *gin.Context) {
	objectPath := strings.TrimPrefix(ctx.Param("path"), "/")
	body, err := c.messaging.Download(ctx.Request.Context(), objectPath, ctx.Query("token"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(objectPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"Content-Disposition": `attachment; filename="` + path.Base(objectPath) + `"`,
		"Cache-Control":       "private, no-store",
	})
}
