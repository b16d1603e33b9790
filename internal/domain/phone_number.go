package domain

import "time"

// PhoneNumberStatus values for a provisioned number.
const (
	PhoneNumberStatusActive   = "active"
	PhoneNumberStatusReleased = "released"
)

// PhoneNumber is the telephone number attached to an agent. The unique
// index on agent_id keeps the relation cardinality-one; the unique index
// on phone_number keeps the E.164 value globally unique across tenants.
// Provisioning against the carrier happens in the telephony collaborator;
// this row only records the result.
type PhoneNumber struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	AgentID     uint      `json:"agent_id" gorm:"not null;uniqueIndex"`
	PhoneNumber string    `json:"phone_number" gorm:"type:varchar(32);not null;uniqueIndex"`
	Country     string    `json:"country" gorm:"type:varchar(8)"`
	AreaCode    string    `json:"area_code" gorm:"type:varchar(8)"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;default:'active'"`
	WebhookURL  string    `json:"webhook_url" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for PhoneNumber
func (PhoneNumber) TableName() string {
	return "phone_numbers"
}

// AttachPhoneNumberRequest records a number the telephony collaborator has
// provisioned for an agent.
type AttachPhoneNumberRequest struct {
	AgentID     uint   `json:"agent_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Country     string `json:"country,omitempty"`
	AreaCode    string `json:"area_code,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
}
