package domain

import "time"

// ConversationStatus represents the state of a call transcript.
type ConversationStatus string

const (
	ConversationStatusInProgress ConversationStatus = "in_progress"
	ConversationStatusCompleted  ConversationStatus = "completed"
	ConversationStatusFailed     ConversationStatus = "failed"
	ConversationStatusCancelled  ConversationStatus = "cancelled"
)

// TerminalConversationStatus reports whether s is absorbing: once reached,
// no further status transition is permitted.
func TerminalConversationStatus(s ConversationStatus) bool {
	switch s {
	case ConversationStatusCompleted, ConversationStatusFailed, ConversationStatusCancelled:
		return true
	}
	return false
}

// MessageRole values for conversation messages.
type MessageRole string

const (
	MessageRoleUser   MessageRole = "user"
	MessageRoleAgent  MessageRole = "agent"
	MessageRoleSystem MessageRole = "system"
)

// ValidMessageRole reports whether r is one of the known message roles.
func ValidMessageRole(r MessageRole) bool {
	switch r {
	case MessageRoleUser, MessageRoleAgent, MessageRoleSystem:
		return true
	}
	return false
}

// Conversation is one call handled by an agent. EndedAt is nil exactly
// while Status is in_progress; it is set on the transition into a terminal
// status and never cleared.
type Conversation struct {
	ID          uint               `json:"id" gorm:"primaryKey"`
	AgentID     uint               `json:"agent_id" gorm:"not null;index"`
	CallerPhone string             `json:"caller_phone" gorm:"type:varchar(32)"`
	StartedAt   time.Time          `json:"started_at" gorm:"autoCreateTime"`
	EndedAt     *time.Time         `json:"ended_at"`
	Status      ConversationStatus `json:"status" gorm:"type:varchar(16);not null;default:'in_progress'"`
}

// TableName sets the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// Message is one transcript turn. Rows are immutable once written; content
// has already passed through the redactor by the time it is persisted.
type Message struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	ConversationID uint        `json:"conversation_id" gorm:"not null;index"`
	Role           MessageRole `json:"role" gorm:"type:varchar(16);not null"`
	Content        string      `json:"content" gorm:"type:text;not null"`
	CreatedAt      time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for Message
func (Message) TableName() string {
	return "messages"
}

// StartConversationRequest opens a transcript for an inbound call.
type StartConversationRequest struct {
	AgentID     uint   `json:"agent_id" validate:"required"`
	CallerPhone string `json:"caller_phone,omitempty"`
}

// AppendMessageRequest appends one turn to a conversation. Content is the
// raw text; the conversation log redacts it before persistence.
type AppendMessageRequest struct {
	Role    MessageRole `json:"role" validate:"required"`
	Content string      `json:"content" validate:"required"`
}

// EndConversationRequest transitions a conversation into a terminal status.
type EndConversationRequest struct {
	Status ConversationStatus `json:"status" validate:"required"`
}
