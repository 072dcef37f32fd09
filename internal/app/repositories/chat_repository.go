package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/dberrors"
)

var conversationColumns = []string{
	"id", "participant_low", "participant_high", "application_id", "last_message", "last_message_time", "created_at",
}

// ChatRepository handles conversations and their messages
type ChatRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	c := &models.Conversation{}
	err := row.Scan(&c.ID, &c.ParticipantLow, &c.ParticipantHigh, &c.ApplicationID,
		&c.LastMessage, &c.LastMessageTime, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetOrCreateConversation returns the conversation between a and b, creating it on
// first use. The pair is unordered: (a, b) and (b, a) resolve to the same row.
func (r *ChatRepository) GetOrCreateConversation(ctx context.Context, a, b uuid.UUID, applicationID *uuid.UUID) (*models.Conversation, error) {
	low, high := models.OrderedPair(a, b)

	_, err := r.db.Exec(ctx, `
		INSERT INTO conversations (participant_low, participant_high, application_id)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT conversations_pair_key DO NOTHING`,
		low, high, applicationID)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	query, args, err := r.sb.Select(conversationColumns...).
		From("conversations").
		Where(squirrel.Eq{"participant_low": low, "participant_high": high}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building conversation query: %w", err)
	}
	conv, err := scanConversation(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation by id
func (r *ChatRepository) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query, args, err := r.sb.Select(conversationColumns...).
		From("conversations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building conversation query: %w", err)
	}
	conv, err := scanConversation(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.NewResourceNotFoundError("Conversation not found")
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns every conversation the identity takes part in, most
// recently active first. Conversations without messages sort last.
func (r *ChatRepository) ListConversations(ctx context.Context, identityID uuid.UUID) ([]*models.Conversation, error) {
	query, args, err := r.sb.Select(conversationColumns...).
		From("conversations").
		Where(squirrel.Or{
			squirrel.Eq{"participant_low": identityID},
			squirrel.Eq{"participant_high": identityID},
		}).
		OrderBy("last_message_time DESC NULLS LAST", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building conversation list: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// UpdatePreview sets the conversation list preview
func (r *ChatRepository) UpdatePreview(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) error {
	query, args, err := r.sb.Update("conversations").
		Set("last_message", preview).
		Set("last_message_time", at).
		Where(squirrel.Eq{"id": conversationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building preview update: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error updating conversation preview: %w", err)
	}
	return nil
}

// CreateMessage inserts a message and fills its id and timestamp
func (r *ChatRepository) CreateMessage(ctx context.Context, m *models.Message) error {
	query, args, err := r.sb.Insert("messages").
		Columns("conversation_id", "sender_id", "content").
		Values(m.ConversationID, m.SenderID, m.Content).
		Suffix("RETURNING id, sent_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building message insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&m.ID, &m.SentAt); err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

// GetMessage retrieves a message by id
func (r *ChatRepository) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	m := &models.Message{}
	err := r.db.QueryRow(ctx, `
		SELECT id, conversation_id, sender_id, content, sent_at
		FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.SentAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.NewResourceNotFoundError("Message not found")
		}
		return nil, fmt.Errorf("error retrieving message: %w", err)
	}
	return m, nil
}

// ListMessages returns a conversation's messages in send order. A zero limit
// returns all of them; otherwise the most recent limit messages are returned,
// still in ascending order.
func (r *ChatRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]*models.Message, error) {
	inner := r.sb.Select("id", "conversation_id", "sender_id", "content", "sent_at").
		From("messages").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		OrderBy("sent_at DESC")
	if before != nil {
		inner = inner.Where(squirrel.Lt{"sent_at": *before})
	}
	if limit > 0 {
		inner = inner.Limit(uint64(limit))
	}

	query, args, err := r.sb.Select("*").
		FromSelect(inner, "recent").
		OrderBy("sent_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building message query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
