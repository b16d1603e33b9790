// Package conversation is the append-only call transcript log: it owns
// the conversation state machine and guarantees message content passes
// through the redactor before persistence.
package conversation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helloml/agent-core/internal/authz"
	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
	"github.com/helloml/agent-core/pkg/logger"
)

// Redactor sanitizes transcript text before it is stored. The log never
// persists the raw value: if redaction fails, the message is dropped and
// the error surfaces to the caller.
type Redactor interface {
	Redact(ctx context.Context, raw string) (string, error)
}

// Service provides conversation log operations.
type Service struct {
	repos    repository.RepositoryManager
	redactor Redactor
}

// NewService creates a new conversation log service
func NewService(repos repository.RepositoryManager, redactor Redactor) *Service {
	return &Service{repos: repos, redactor: redactor}
}

// Start opens a transcript for an inbound call in the in_progress state.
func (s *Service) Start(ctx context.Context, principalID string, req *domain.StartConversationRequest) (*domain.Conversation, error) {
	conversation := &domain.Conversation{
		AgentID:     req.AgentID,
		CallerPhone: req.CallerPhone,
		Status:      domain.ConversationStatusInProgress,
	}

	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.AuthorizeCreate(ctx, repos, principalID, authz.ResourceAgent, req.AgentID); err != nil {
			return err
		}
		_, err := repos.Conversation().Create(ctx, conversation)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Base().Info("conversation started",
		zap.Uint("conversation_id", conversation.ID),
		zap.Uint("agent_id", conversation.AgentID),
	)
	return conversation, nil
}

// Get returns a conversation the principal owns.
func (s *Service) Get(ctx context.Context, principalID string, id uint) (*domain.Conversation, error) {
	var conversation *domain.Conversation
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceConversation, id, authz.OperationRead); err != nil {
			return err
		}
		var err error
		conversation, err = repos.Conversation().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// ListByAgent returns an agent's conversations, newest first, with an
// optional status filter and limit/offset pagination.
func (s *Service) ListByAgent(ctx context.Context, principalID string, agentID uint, status domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error) {
	if status != "" && status != domain.ConversationStatusInProgress && !domain.TerminalConversationStatus(status) {
		return nil, fmt.Errorf("unknown conversation status %q: %w", status, domain.ErrInvalidState)
	}

	var conversations []*domain.Conversation
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, agentID, authz.OperationRead); err != nil {
			return err
		}
		var err error
		conversations, err = repos.Conversation().ListByAgent(ctx, agentID, status, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// AppendMessage redacts and appends one transcript turn.
//
// Appends to a conversation in a terminal status are permitted only for
// role system, so call-end bookkeeping can leave a final note; user and
// agent turns after the call has ended are rejected. This is a deliberate
// policy choice, not an accident of missing constraints.
func (s *Service) AppendMessage(ctx context.Context, principalID string, conversationID uint, req *domain.AppendMessageRequest) (*domain.Message, error) {
	if !domain.ValidMessageRole(req.Role) {
		return nil, fmt.Errorf("unknown message role %q: %w", req.Role, domain.ErrInvalidState)
	}

	// Redact before anything touches storage. The raw content must never
	// be persisted, so a redactor failure aborts the append entirely.
	sanitized, err := s.redactor.Redact(ctx, req.Content)
	if err != nil {
		return nil, fmt.Errorf("redaction failed for conversation %d: %v: %w", conversationID, err, domain.ErrUpstreamFailure)
	}

	message := &domain.Message{
		ConversationID: conversationID,
		Role:           req.Role,
		Content:        sanitized,
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.AuthorizeCreate(ctx, repos, principalID, authz.ResourceConversation, conversationID); err != nil {
			return err
		}
		conversation, err := repos.Conversation().GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if domain.TerminalConversationStatus(conversation.Status) && req.Role != domain.MessageRoleSystem {
			return fmt.Errorf("conversation %d is %s: %w", conversationID, conversation.Status, domain.ErrInvalidState)
		}
		_, err = repos.Message().Create(ctx, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *Service) ListMessages(ctx context.Context, principalID string, conversationID uint) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceConversation, conversationID, authz.OperationRead); err != nil {
			return err
		}
		var err error
		messages, err = repos.Message().ListByConversation(ctx, conversationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// End transitions a conversation into a terminal status and stamps
// ended_at. Only in_progress conversations can transition; terminal
// statuses are absorbing.
func (s *Service) End(ctx context.Context, principalID string, conversationID uint, status domain.ConversationStatus) (*domain.Conversation, error) {
	if !domain.TerminalConversationStatus(status) {
		return nil, fmt.Errorf("%q is not a terminal conversation status: %w", status, domain.ErrInvalidState)
	}

	var conversation *domain.Conversation
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceConversation, conversationID, authz.OperationUpdate); err != nil {
			return err
		}
		var err error
		conversation, err = repos.Conversation().Terminate(ctx, conversationID, status, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Base().Info("conversation ended",
		zap.Uint("conversation_id", conversationID),
		zap.String("status", string(status)),
	)
	return conversation, nil
}

// Delete removes a conversation and its messages in one transaction.
func (s *Service) Delete(ctx context.Context, principalID string, conversationID uint) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceConversation, conversationID, authz.OperationDelete); err != nil {
			return err
		}
		if err := repos.Message().DeleteByConversationID(ctx, conversationID); err != nil {
			return err
		}
		return repos.Conversation().Delete(ctx, conversationID)
	})
}
