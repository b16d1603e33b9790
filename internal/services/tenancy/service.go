// Package tenancy manages businesses, the roots of the resource hierarchy.
package tenancy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/helloml/agent-core/internal/authz"
	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
	"github.com/helloml/agent-core/pkg/logger"
)

// Service provides business lifecycle operations.
type Service struct {
	repos repository.RepositoryManager
}

// NewService creates a new tenancy service
func NewService(repos repository.RepositoryManager) *Service {
	return &Service{repos: repos}
}

// CreateBusiness creates a business owned by the calling principal. Any
// authenticated principal may create businesses; the owner is stamped here
// and is immutable for the life of the row.
func (s *Service) CreateBusiness(ctx context.Context, principalID string, req *domain.CreateBusinessRequest) (*domain.Business, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("business name is required: %w", domain.ErrInvalidState)
	}

	business, err := s.repos.Business().Create(ctx, principalID, req)
	if err != nil {
		return nil, err
	}

	logger.Base().Info("business created",
		zap.Uint("business_id", business.ID),
		zap.String("owner", principalID),
	)
	return business, nil
}

// GetBusiness returns a business the principal owns.
func (s *Service) GetBusiness(ctx context.Context, principalID string, id uint) (*domain.Business, error) {
	var business *domain.Business
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceBusiness, id, authz.OperationRead); err != nil {
			return err
		}
		var err error
		business, err = repos.Business().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return business, nil
}

// ListBusinesses returns all businesses owned by the principal.
func (s *Service) ListBusinesses(ctx context.Context, principalID string) ([]*domain.Business, error) {
	return s.repos.Business().ListByOwner(ctx, principalID)
}

// UpdateBusiness applies a field-level patch to a business the principal
// owns. Ownership itself is not patchable.
func (s *Service) UpdateBusiness(ctx context.Context, principalID string, id uint, req *domain.UpdateBusinessRequest) (*domain.Business, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("business name cannot be empty: %w", domain.ErrInvalidState)
	}

	var business *domain.Business
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceBusiness, id, authz.OperationUpdate); err != nil {
			return err
		}
		var err error
		business, err = repos.Business().Update(ctx, id, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return business, nil
}

// DeleteBusiness removes a business and its entire subtree (agent, phone
// number, documents, chunks, conversations, messages) in one transaction.
// A failure anywhere rolls the whole cascade back; no partial subtree is
// left behind.
func (s *Service) DeleteBusiness(ctx context.Context, principalID string, id uint) error {
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceBusiness, id, authz.OperationDelete); err != nil {
			return err
		}

		agent, err := repos.Agent().GetByBusinessID(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if agent != nil {
			// Deepest rows first so no orphan can survive a partial
			// failure even if the engine lacks deferred constraints.
			if err := repos.Message().DeleteByAgentID(ctx, agent.ID); err != nil {
				return err
			}
			if err := repos.Conversation().DeleteByAgentID(ctx, agent.ID); err != nil {
				return err
			}
			if err := repos.Document().DeleteChunksByAgentID(ctx, agent.ID); err != nil {
				return err
			}
			if err := repos.Document().DeleteByAgentID(ctx, agent.ID); err != nil {
				return err
			}
			if err := repos.PhoneNumber().DeleteByAgentID(ctx, agent.ID); err != nil {
				return err
			}
			if err := repos.Agent().DeleteByBusinessID(ctx, id); err != nil {
				return err
			}
		}

		return repos.Business().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	logger.Base().Info("business deleted", zap.Uint("business_id", id))
	return nil
}
