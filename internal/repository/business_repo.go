package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/helloml/agent-core/internal/domain"
)

// BusinessRepository handles database operations for businesses
type BusinessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// Create inserts a business owned by the given principal. The composite
// unique index on (owner_user_id, name) rejects duplicate names per owner.
func (r *BusinessRepository) Create(ctx context.Context, ownerUserID string, req *domain.CreateBusinessRequest) (*domain.Business, error) {
	business := &domain.Business{
		OwnerUserID:   ownerUserID,
		Name:          req.Name,
		Address:       req.Address,
		PhoneNumber:   req.PhoneNumber,
		BusinessEmail: req.BusinessEmail,
	}

	if err := r.db.WithContext(ctx).Create(business).Error; err != nil {
		return nil, translateError(err, "failed to create business")
	}

	return business, nil
}

// GetByID retrieves a business by ID
func (r *BusinessRepository) GetByID(ctx context.Context, id uint) (*domain.Business, error) {
	var business domain.Business
	if err := r.db.WithContext(ctx).First(&business, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("business %d", id))
	}
	return &business, nil
}

// ListByOwner retrieves all businesses owned by a principal
func (r *BusinessRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Business, error) {
	var businesses []*domain.Business
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&businesses).Error; err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	return businesses, nil
}

// Update applies a field-level patch to a business. The owner column is
// never part of the update map.
func (r *BusinessRepository) Update(ctx context.Context, id uint, req *domain.UpdateBusinessRequest) (*domain.Business, error) {
	var business domain.Business
	if err := r.db.WithContext(ctx).First(&business, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("business %d", id))
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
	}
	if req.BusinessEmail != nil {
		updates["business_email"] = *req.BusinessEmail
	}

	if len(updates) == 0 {
		return &business, nil // No changes
	}

	if err := r.db.WithContext(ctx).Model(&business).Updates(updates).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to update business %d", id))
	}

	return &business, nil
}

// Delete removes the business row itself. Descendants must already be
// removed in the same transaction; the tenancy service drives the full
// cascade.
func (r *BusinessRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Business{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete business %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("business %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
