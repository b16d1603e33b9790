package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/helloml/agent-core/internal/domain"
)

// AgentRepository handles database operations for agents
type AgentRepository struct {
	db *gorm.DB
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Create inserts the agent for a business. The unique index on business_id
// makes a second concurrent insert for the same business fail with a
// duplicate-key error rather than silently overwriting.
func (r *AgentRepository) Create(ctx context.Context, agent *domain.Agent) (*domain.Agent, error) {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to create agent for business %d", agent.BusinessID))
	}
	return agent, nil
}

// GetByID retrieves an agent by ID
func (r *AgentRepository) GetByID(ctx context.Context, id uint) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("agent %d", id))
	}
	return &agent, nil
}

// GetByBusinessID retrieves the agent belonging to a business
func (r *AgentRepository) GetByBusinessID(ctx context.Context, businessID uint) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).First(&agent, "business_id = ?", businessID).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("agent for business %d", businessID))
	}
	return &agent, nil
}

// Update applies a field-level patch and refreshes updated_at.
func (r *AgentRepository) Update(ctx context.Context, id uint, req *domain.UpdateAgentRequest) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("agent %d", id))
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ModelType != nil {
		updates["model_type"] = *req.ModelType
	}
	if req.Temperature != nil {
		updates["temperature"] = *req.Temperature
	}
	if req.VoiceModel != nil {
		updates["voice_model"] = *req.VoiceModel
	}
	if req.Prompt != nil {
		updates["prompt"] = *req.Prompt
	}
	if req.Greeting != nil {
		updates["greeting"] = *req.Greeting
	}
	if req.Goodbye != nil {
		updates["goodbye"] = *req.Goodbye
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) == 0 {
		return &agent, nil // No changes
	}

	if err := r.db.WithContext(ctx).Model(&agent).Updates(updates).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to update agent %d", id))
	}

	return &agent, nil
}

// Delete removes the agent row itself; the services remove descendants
// first inside the same transaction.
func (r *AgentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Agent{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete agent %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("agent %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteByBusinessID removes the agent rows under a business as part of a
// business cascade.
func (r *AgentRepository) DeleteByBusinessID(ctx context.Context, businessID uint) error {
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Delete(&domain.Agent{}).Error; err != nil {
		return fmt.Errorf("failed to delete agents for business %d: %w", businessID, err)
	}
	return nil
}
