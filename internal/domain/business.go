package domain

import "time"

// Business is the root of the resource hierarchy. OwnerUserID is the
// external identity of the owning principal; it is stamped at creation and
// never patched. The composite unique index keeps business names unique
// per owner.
type Business struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	OwnerUserID   string    `json:"owner_user_id" gorm:"type:varchar(255);not null;index;uniqueIndex:idx_owner_name"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_owner_name"`
	Address       string    `json:"address" gorm:"type:text"`
	PhoneNumber   string    `json:"phone_number" gorm:"type:varchar(32)"`
	BusinessEmail string    `json:"business_email" gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Business
func (Business) TableName() string {
	return "businesses"
}

// CreateBusinessRequest represents the request to create a business. The
// owner comes from the authenticated principal, never from the body.
type CreateBusinessRequest struct {
	Name          string `json:"name" validate:"required"`
	Address       string `json:"address,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	BusinessEmail string `json:"business_email,omitempty"`
}

// UpdateBusinessRequest represents a field-level patch of a business.
// Ownership is not patchable.
type UpdateBusinessRequest struct {
	Name          *string `json:"name,omitempty"`
	Address       *string `json:"address,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	BusinessEmail *string `json:"business_email,omitempty"`
}
