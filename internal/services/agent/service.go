// Package agent manages agent configuration and phone number attachment.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/helloml/agent-core/internal/authz"
	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
	"github.com/helloml/agent-core/pkg/logger"
)

// Defaults applied when a create request leaves fields empty, matching the
// provisioning flow the platform exposes.
const (
	defaultAgentName   = "Agent"
	defaultModelType   = "gpt-realtime-2025-08-28"
	defaultTemperature = 0.7
	defaultGreeting    = "Hello There!"
	defaultGoodbye     = "Goodbye and take care!"
)

// Service provides agent and phone number operations.
type Service struct {
	repos repository.RepositoryManager
}

// NewService creates a new agent service
func NewService(repos repository.RepositoryManager) *Service {
	return &Service{repos: repos}
}

// CreateAgent creates the agent for a business. Authorization resolves via
// the supplied business id since the agent does not exist yet. The unique
// index on business_id guarantees that of N concurrent creations exactly
// one succeeds; the rest surface domain.ErrConflict.
func (s *Service) CreateAgent(ctx context.Context, principalID string, req *domain.CreateAgentRequest) (*domain.Agent, error) {
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < domain.MinTemperature || temperature > domain.MaxTemperature {
		return nil, fmt.Errorf("temperature %.2f out of range [%g, %g]: %w",
			temperature, domain.MinTemperature, domain.MaxTemperature, domain.ErrInvalidState)
	}

	agent := &domain.Agent{
		BusinessID:  req.BusinessID,
		Name:        req.Name,
		ModelType:   req.ModelType,
		Temperature: temperature,
		VoiceModel:  req.VoiceModel,
		Prompt:      req.Prompt,
		Greeting:    req.Greeting,
		Goodbye:     req.Goodbye,
		Status:      domain.AgentStatusActive,
	}
	if agent.Name == "" {
		agent.Name = defaultAgentName
	}
	if agent.ModelType == "" {
		agent.ModelType = defaultModelType
	}
	if agent.Greeting == "" {
		agent.Greeting = defaultGreeting
	}
	if agent.Goodbye == "" {
		agent.Goodbye = defaultGoodbye
	}

	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.AuthorizeCreate(ctx, repos, principalID, authz.ResourceBusiness, req.BusinessID); err != nil {
			return err
		}
		_, err := repos.Agent().Create(ctx, agent)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Base().Info("agent created",
		zap.Uint("agent_id", agent.ID),
		zap.Uint("business_id", agent.BusinessID),
	)
	return agent, nil
}

// GetAgent returns an agent together with its phone number, nil when no
// number is attached.
func (s *Service) GetAgent(ctx context.Context, principalID string, id uint) (*domain.AgentWithPhone, error) {
	var result *domain.AgentWithPhone
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, id, authz.OperationRead); err != nil {
			return err
		}
		agent, err := repos.Agent().GetByID(ctx, id)
		if err != nil {
			return err
		}
		number, err := repos.PhoneNumber().GetByAgentID(ctx, id)
		if err != nil {
			return err
		}
		result = &domain.AgentWithPhone{Agent: *agent, PhoneNumber: number}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetAgentByBusiness returns the agent of a business with its phone number.
func (s *Service) GetAgentByBusiness(ctx context.Context, principalID string, businessID uint) (*domain.AgentWithPhone, error) {
	var result *domain.AgentWithPhone
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceBusiness, businessID, authz.OperationRead); err != nil {
			return err
		}
		agent, err := repos.Agent().GetByBusinessID(ctx, businessID)
		if err != nil {
			return err
		}
		number, err := repos.PhoneNumber().GetByAgentID(ctx, agent.ID)
		if err != nil {
			return err
		}
		result = &domain.AgentWithPhone{Agent: *agent, PhoneNumber: number}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateAgent applies a field-level patch to an agent configuration and
// refreshes updated_at.
func (s *Service) UpdateAgent(ctx context.Context, principalID string, id uint, req *domain.UpdateAgentRequest) (*domain.Agent, error) {
	if req.Temperature != nil && (*req.Temperature < domain.MinTemperature || *req.Temperature > domain.MaxTemperature) {
		return nil, fmt.Errorf("temperature %.2f out of range [%g, %g]: %w",
			*req.Temperature, domain.MinTemperature, domain.MaxTemperature, domain.ErrInvalidState)
	}
	if req.Status != nil && !domain.ValidAgentStatus(*req.Status) {
		return nil, fmt.Errorf("unknown agent status %q: %w", *req.Status, domain.ErrInvalidState)
	}
	if req.Prompt != nil && *req.Prompt == "" {
		logger.Base().Warn("agent prompt set to empty, default prompt will be used during calls",
			zap.Uint("agent_id", id))
	}

	var agent *domain.Agent
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, id, authz.OperationUpdate); err != nil {
			return err
		}
		var err error
		agent, err = repos.Agent().Update(ctx, id, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// AttachPhoneNumber records the number the telephony collaborator
// provisioned for an agent. The storage engine enforces both the
// one-number-per-agent invariant and global uniqueness of the value, so
// concurrent attachments resolve to exactly one winner.
func (s *Service) AttachPhoneNumber(ctx context.Context, principalID string, req *domain.AttachPhoneNumberRequest) (*domain.PhoneNumber, error) {
	if req.PhoneNumber == "" {
		return nil, fmt.Errorf("phone number value is required: %w", domain.ErrInvalidState)
	}

	number := &domain.PhoneNumber{
		AgentID:     req.AgentID,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
		AreaCode:    req.AreaCode,
		Status:      domain.PhoneNumberStatusActive,
		WebhookURL:  req.WebhookURL,
	}

	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.AuthorizeCreate(ctx, repos, principalID, authz.ResourceAgent, req.AgentID); err != nil {
			return err
		}
		_, err := repos.PhoneNumber().Create(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Base().Info("phone number attached",
		zap.Uint("agent_id", number.AgentID),
		zap.String("number", number.PhoneNumber),
	)
	return number, nil
}

// GetPhoneNumber returns the number attached to an agent, nil when none.
func (s *Service) GetPhoneNumber(ctx context.Context, principalID string, agentID uint) (*domain.PhoneNumber, error) {
	var number *domain.PhoneNumber
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, agentID, authz.OperationRead); err != nil {
			return err
		}
		var err error
		number, err = repos.PhoneNumber().GetByAgentID(ctx, agentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return number, nil
}

// ReleasePhoneNumber detaches an agent's phone number after the telephony
// collaborator has released it with the carrier.
func (s *Service) ReleasePhoneNumber(ctx context.Context, principalID string, agentID uint) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, agentID, authz.OperationDelete); err != nil {
			return err
		}
		number, err := repos.PhoneNumber().GetByAgentID(ctx, agentID)
		if err != nil {
			return err
		}
		if number == nil {
			return fmt.Errorf("agent %d has no phone number: %w", agentID, domain.ErrNotFound)
		}
		return repos.PhoneNumber().Delete(ctx, number.ID)
	})
}
