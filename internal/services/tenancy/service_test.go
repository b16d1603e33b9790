package tenancy_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
	"github.com/helloml/agent-core/internal/services/tenancy"
)

func newTestRepos(t *testing.T) repository.RepositoryManager {
	t.Helper()
	db, err := repository.NewDatabaseConnection(&repository.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	return repository.NewGormRepositoryManager(db)
}

func TestCreateBusiness(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	business, err := svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{
		Name:          "Acme Dental",
		BusinessEmail: "front-desk@acmedental.example",
	})
	require.NoError(t, err)
	require.NotZero(t, business.ID)
	require.Equal(t, "alice", business.OwnerUserID)
	require.Equal(t, "Acme Dental", business.Name)
}

func TestCreateBusinessRequiresName(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)

	_, err := svc.CreateBusiness(context.Background(), "alice", &domain.CreateBusinessRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCreateBusinessDuplicateNamePerOwner(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	_, err := svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{Name: "Acme"})
	require.ErrorIs(t, err, domain.ErrConflict)

	// A different owner can reuse the name.
	_, err = svc.CreateBusiness(ctx, "bob", &domain.CreateBusinessRequest{Name: "Acme"})
	require.NoError(t, err)
}

func TestGetBusinessCrossTenant(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	business, err := svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{Name: "Acme"})
	require.NoError(t, err)

	got, err := svc.GetBusiness(ctx, "alice", business.ID)
	require.NoError(t, err)
	require.Equal(t, business.ID, got.ID)

	_, err = svc.GetBusiness(ctx, "bob", business.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetBusiness(ctx, "alice", business.ID+100)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBusinessesScopedToOwner(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	for _, name := range []string{"Acme", "Globex"} {
		_, err := svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{Name: name})
		require.NoError(t, err)
	}
	_, err := svc.CreateBusiness(ctx, "bob", &domain.CreateBusinessRequest{Name: "Initech"})
	require.NoError(t, err)

	mine, err := svc.ListBusinesses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, b := range mine {
		require.Equal(t, "alice", b.OwnerUserID)
	}
}

func TestUpdateBusiness(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	business, err := svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{Name: "Acme"})
	require.NoError(t, err)

	name := "Acme Dental"
	address := "1 Main St"
	updated, err := svc.UpdateBusiness(ctx, "alice", business.ID, &domain.UpdateBusinessRequest{
		Name:    &name,
		Address: &address,
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Dental", updated.Name)
	require.Equal(t, "1 Main St", updated.Address)
	require.Equal(t, "alice", updated.OwnerUserID)

	empty := ""
	_, err = svc.UpdateBusiness(ctx, "alice", business.ID, &domain.UpdateBusinessRequest{Name: &empty})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.UpdateBusiness(ctx, "bob", business.ID, &domain.UpdateBusinessRequest{Name: &name})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

// seedFullTree builds a business with an agent, phone number, document,
// chunks, conversation and messages so the cascade has every row type to
// remove.
func seedFullTree(t *testing.T, repos repository.RepositoryManager, owner string) (businessID, agentID, documentID, conversationID uint) {
	t.Helper()
	ctx := context.Background()

	business, err := repos.Business().Create(ctx, owner, &domain.CreateBusinessRequest{Name: "Acme " + owner})
	require.NoError(t, err)

	agent, err := repos.Agent().Create(ctx, &domain.Agent{
		BusinessID: business.ID,
		Name:       "Receptionist",
		Status:     domain.AgentStatusActive,
	})
	require.NoError(t, err)

	_, err = repos.PhoneNumber().Create(ctx, &domain.PhoneNumber{
		AgentID:     agent.ID,
		PhoneNumber: "+14155550" + owner[:3],
		Status:      domain.PhoneNumberStatusActive,
	})
	require.NoError(t, err)

	doc, err := repos.Document().Upsert(ctx, &domain.UpsertDocumentRequest{AgentID: agent.ID, Filename: "faq.txt"})
	require.NoError(t, err)
	require.NoError(t, repos.Document().UpsertChunks(ctx, []*domain.DocumentChunk{
		{DocumentID: doc.ID, ChunkIndex: 0, ChunkText: "opening hours", Embedding: domain.Vector{1, 0}},
		{DocumentID: doc.ID, ChunkIndex: 1, ChunkText: "directions", Embedding: domain.Vector{0, 1}},
	}))

	conversation, err := repos.Conversation().Create(ctx, &domain.Conversation{
		AgentID: agent.ID,
		Status:  domain.ConversationStatusInProgress,
	})
	require.NoError(t, err)
	for _, content := range []string{"hello", "hi, how can I help"} {
		_, err = repos.Message().Create(ctx, &domain.Message{
			ConversationID: conversation.ID,
			Role:           domain.MessageRoleUser,
			Content:        content,
		})
		require.NoError(t, err)
	}

	return business.ID, agent.ID, doc.ID, conversation.ID
}

func TestDeleteBusinessCascades(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	businessID, agentID, documentID, conversationID := seedFullTree(t, repos, "alice")
	// A second tenant's tree must survive untouched.
	otherBusinessID, otherAgentID, _, _ := seedFullTree(t, repos, "bob")

	require.NoError(t, svc.DeleteBusiness(ctx, "alice", businessID))

	_, err := repos.Business().GetByID(ctx, businessID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repos.Agent().GetByID(ctx, agentID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repos.Document().GetByID(ctx, documentID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repos.Conversation().GetByID(ctx, conversationID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	number, err := repos.PhoneNumber().GetByAgentID(ctx, agentID)
	require.NoError(t, err)
	require.Nil(t, number)

	chunks, err := repos.Document().ChunksByAgent(ctx, agentID)
	require.NoError(t, err)
	require.Empty(t, chunks)

	messages, err := repos.Message().ListByConversation(ctx, conversationID)
	require.NoError(t, err)
	require.Empty(t, messages)

	// The other tenant's subtree is intact.
	_, err = repos.Business().GetByID(ctx, otherBusinessID)
	require.NoError(t, err)
	otherChunks, err := repos.Document().ChunksByAgent(ctx, otherAgentID)
	require.NoError(t, err)
	require.Len(t, otherChunks, 2)
}

func TestDeleteBusinessWithoutAgent(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	business, err := svc.CreateBusiness(ctx, "alice", &domain.CreateBusinessRequest{Name: "Empty Shell"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBusiness(ctx, "alice", business.ID))
	_, err = repos.Business().GetByID(ctx, business.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBusinessCrossTenant(t *testing.T) {
	repos := newTestRepos(t)
	svc := tenancy.NewService(repos)
	ctx := context.Background()

	businessID, agentID, _, _ := seedFullTree(t, repos, "alice")

	err := svc.DeleteBusiness(ctx, "bob", businessID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	// Nothing was deleted.
	_, err = repos.Business().GetByID(ctx, businessID)
	require.NoError(t, err)
	_, err = repos.Agent().GetByID(ctx, agentID)
	require.NoError(t, err)
}
