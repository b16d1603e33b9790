package domain

import "time"

// AgentStatus represents the lifecycle status of an agent
type AgentStatus string

const (
	AgentStatusInactive AgentStatus = "inactive"
	AgentStatusActive   AgentStatus = "active"
	AgentStatusPaused   AgentStatus = "paused"
)

// ValidAgentStatus reports whether s is one of the known agent statuses.
func ValidAgentStatus(s AgentStatus) bool {
	switch s {
	case AgentStatusInactive, AgentStatusActive, AgentStatusPaused:
		return true
	}
	return false
}

// Temperature bounds accepted for agent model sampling.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Agent is the voice agent configuration for a business. The unique index
// on business_id enforces the one-agent-per-business invariant at the
// storage engine, so concurrent creations race on the index, not on
// application reads.
type Agent struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	BusinessID  uint        `json:"business_id" gorm:"not null;uniqueIndex"`
	Name        string      `json:"name" gorm:"type:varchar(255);not null"`
	ModelType   string      `json:"model_type" gorm:"type:varchar(255)"`
	Temperature float64     `json:"temperature" gorm:"default:0.7"`
	VoiceModel  string      `json:"voice_model" gorm:"type:varchar(255)"`
	Prompt      string      `json:"prompt" gorm:"type:text"`
	Greeting    string      `json:"greeting" gorm:"type:text"`
	Goodbye     string      `json:"goodbye" gorm:"type:text"`
	Status      AgentStatus `json:"status" gorm:"type:varchar(16);not null;default:'inactive'"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Agent
func (Agent) TableName() string {
	return "agents"
}

// AgentWithPhone is an agent together with its provisioned phone number,
// nil when no number is attached yet.
type AgentWithPhone struct {
	Agent
	PhoneNumber *PhoneNumber `json:"phone_number"`
}

// CreateAgentRequest represents the request to create an agent for a business
type CreateAgentRequest struct {
	BusinessID  uint     `json:"business_id" validate:"required"`
	Name        string   `json:"name,omitempty"`
	ModelType   string   `json:"model_type,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	VoiceModel  string   `json:"voice_model,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	Greeting    string   `json:"greeting,omitempty"`
	Goodbye     string   `json:"goodbye,omitempty"`
}

// UpdateAgentRequest represents a field-level patch of an agent configuration
type UpdateAgentRequest struct {
	Name        *string      `json:"name,omitempty"`
	ModelType   *string      `json:"model_type,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	VoiceModel  *string      `json:"voice_model,omitempty"`
	Prompt      *string      `json:"prompt,omitempty"`
	Greeting    *string      `json:"greeting,omitempty"`
	Goodbye     *string      `json:"goodbye,omitempty"`
	Status      *AgentStatus `json:"status,omitempty"`
}
