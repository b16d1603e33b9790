package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/helloml/agent-core/internal/domain"
)

// RepositoryManager combines all repositories. WithTx hands the callback a
// manager whose repositories share one transaction, so an authorization
// check and the mutation it gates see the same snapshot.
type RepositoryManager interface {
	Business() *BusinessRepository
	Agent() *AgentRepository
	PhoneNumber() *PhoneNumberRepository
	Document() *DocumentRepository
	Conversation() *ConversationRepository
	Message() *MessageRepository

	// Transaction support
	WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db               *gorm.DB
	businessRepo     *BusinessRepository
	agentRepo        *AgentRepository
	phoneNumberRepo  *PhoneNumberRepository
	documentRepo     *DocumentRepository
	conversationRepo *ConversationRepository
	messageRepo      *MessageRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:               db,
		businessRepo:     NewBusinessRepository(db),
		agentRepo:        NewAgentRepository(db),
		phoneNumberRepo:  NewPhoneNumberRepository(db),
		documentRepo:     NewDocumentRepository(db),
		conversationRepo: NewConversationRepository(db),
		messageRepo:      NewMessageRepository(db),
	}
}

// Business returns the business repository
func (m *GormRepositoryManager) Business() *BusinessRepository { return m.businessRepo }

// Agent returns the agent repository
func (m *GormRepositoryManager) Agent() *AgentRepository { return m.agentRepo }

// PhoneNumber returns the phone number repository
func (m *GormRepositoryManager) PhoneNumber() *PhoneNumberRepository { return m.phoneNumberRepo }

// Document returns the document repository
func (m *GormRepositoryManager) Document() *DocumentRepository { return m.documentRepo }

// Conversation returns the conversation repository
func (m *GormRepositoryManager) Conversation() *ConversationRepository { return m.conversationRepo }

// Message returns the message repository
func (m *GormRepositoryManager) Message() *MessageRepository { return m.messageRepo }

// WithTx executes a function within a database transaction. The callback
// receives a manager bound to the transaction; returning an error rolls
// everything back, including partially applied cascades.
func (m *GormRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormRepositoryManager(tx))
	})
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateError maps GORM storage errors onto the domain taxonomy.
func translateError(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, domain.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
