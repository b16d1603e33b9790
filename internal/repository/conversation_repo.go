package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/helloml/agent-core/internal/domain"
)

// ConversationRepository handles database operations for conversations
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a conversation in the in_progress state.
func (r *ConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) (*domain.Conversation, error) {
	if conversation.Status == "" {
		conversation.Status = domain.ConversationStatusInProgress
	}
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to create conversation for agent %d", conversation.AgentID))
	}
	return conversation, nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id uint) (*domain.Conversation, error) {
	var conversation domain.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("conversation %d", id))
	}
	return &conversation, nil
}

// ListByAgent retrieves conversations for an agent, newest first, with an
// optional status filter and limit/offset pagination.
func (r *ConversationRepository) ListByAgent(ctx context.Context, agentID uint, status domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error) {
	query := r.db.WithContext(ctx).Where("agent_id = ?", agentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var conversations []*domain.Conversation
	if err := query.Order("started_at DESC").Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations for agent %d: %w", agentID, err)
	}
	return conversations, nil
}

// Terminate moves a conversation into a terminal status and stamps
// ended_at. The WHERE clause re-checks in_progress inside the transaction
// so two racing terminations cannot both win.
func (r *ConversationRepository) Terminate(ctx context.Context, id uint, status domain.ConversationStatus, endedAt time.Time) (*domain.Conversation, error) {
	result := r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ? AND status = ?", id, domain.ConversationStatusInProgress).
		Updates(map[string]interface{}{
			"status":   status,
			"ended_at": endedAt,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to end conversation %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("conversation %d is not in progress: %w", id, domain.ErrInvalidState)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the conversation row itself; messages are removed by the
// message repository within the same transaction.
func (r *ConversationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Conversation{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete conversation %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("conversation %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteByAgentID removes the conversation rows under an agent as part of
// a cascade.
func (r *ConversationRepository) DeleteByAgentID(ctx context.Context, agentID uint) error {
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&domain.Conversation{}).Error; err != nil {
		return fmt.Errorf("failed to delete conversations for agent %d: %w", agentID, err)
	}
	return nil
}

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message. Messages are immutable after this insert.
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to append message to conversation %d", message.ConversationID))
	}
	return message, nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id uint) (*domain.Message, error) {
	var message domain.Message
	if err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("message %d", id))
	}
	return &message, nil
}

// ListByConversation retrieves all messages of a conversation in
// chronological order.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*domain.Message, error) {
	var messages []*domain.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages for conversation %d: %w", conversationID, err)
	}
	return messages, nil
}

// DeleteByConversationID removes all messages of a conversation.
func (r *MessageRepository) DeleteByConversationID(ctx context.Context, conversationID uint) error {
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&domain.Message{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages for conversation %d: %w", conversationID, err)
	}
	return nil
}

// DeleteByAgentID removes all messages under an agent's conversations as
// part of a cascade. The subquery keeps the statement scoped to one agent
// subtree.
func (r *MessageRepository) DeleteByAgentID(ctx context.Context, agentID uint) error {
	sub := r.db.Model(&domain.Conversation{}).Select("id").Where("agent_id = ?", agentID)
	if err := r.db.WithContext(ctx).
		Where("conversation_id IN (?)", sub).
		Delete(&domain.Message{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages for agent %d: %w", agentID, err)
	}
	return nil
}
