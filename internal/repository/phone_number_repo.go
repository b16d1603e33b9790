package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/helloml/agent-core/internal/domain"
)

// PhoneNumberRepository handles database operations for phone numbers
type PhoneNumberRepository struct {
	db *gorm.DB
}

// NewPhoneNumberRepository creates a new phone number repository
func NewPhoneNumberRepository(db *gorm.DB) *PhoneNumberRepository {
	return &PhoneNumberRepository{db: db}
}

// Create inserts the phone number for an agent. Both unique indexes
// (agent_id, phone_number) are enforced by the engine, so concurrent
// attachment attempts resolve to exactly one winner.
func (r *PhoneNumberRepository) Create(ctx context.Context, number *domain.PhoneNumber) (*domain.PhoneNumber, error) {
	if err := r.db.WithContext(ctx).Create(number).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to attach phone number to agent %d", number.AgentID))
	}
	return number, nil
}

// GetByID retrieves a phone number by ID
func (r *PhoneNumberRepository) GetByID(ctx context.Context, id uint) (*domain.PhoneNumber, error) {
	var number domain.PhoneNumber
	if err := r.db.WithContext(ctx).First(&number, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("phone number %d", id))
	}
	return &number, nil
}

// GetByAgentID retrieves the phone number attached to an agent. Returns
// nil without error when the agent has no number.
func (r *PhoneNumberRepository) GetByAgentID(ctx context.Context, agentID uint) (*domain.PhoneNumber, error) {
	var number domain.PhoneNumber
	err := r.db.WithContext(ctx).First(&number, "agent_id = ?", agentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phone number for agent %d: %w", agentID, err)
	}
	return &number, nil
}

// Delete removes a phone number by ID
func (r *PhoneNumberRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.PhoneNumber{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete phone number %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("phone number %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteByAgentID removes the phone number rows under an agent as part of
// a cascade.
func (r *PhoneNumberRepository) DeleteByAgentID(ctx context.Context, agentID uint) error {
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&domain.PhoneNumber{}).Error; err != nil {
		return fmt.Errorf("failed to delete phone numbers for agent %d: %w", agentID, err)
	}
	return nil
}
