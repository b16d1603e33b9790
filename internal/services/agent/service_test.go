package agent_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
	agentsvc "github.com/helloml/agent-core/internal/services/agent"
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

func seedBusiness(t *testing.T, repos repository.RepositoryManager, owner, name string) uint {
	t.Helper()
	business, err := repos.Business().Create(context.Background(), owner, &domain.CreateBusinessRequest{Name: name})
	require.NoError(t, err)
	return business.ID
}

func TestCreateAgentDefaults(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()
	businessID := seedBusiness(t, repos, "alice", "Acme")

	agent, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: businessID})
	require.NoError(t, err)
	require.Equal(t, "Agent", agent.Name)
	require.Equal(t, "gpt-realtime-2025-08-28", agent.ModelType)
	require.InDelta(t, 0.7, agent.Temperature, 1e-9)
	require.Equal(t, "Hello There!", agent.Greeting)
	require.Equal(t, "Goodbye and take care!", agent.Goodbye)
	require.Equal(t, domain.AgentStatusActive, agent.Status)
}

func TestCreateAgentOnePerBusiness(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()
	businessID := seedBusiness(t, repos, "alice", "Acme")

	_, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: businessID})
	require.NoError(t, err)

	_, err = svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: businessID, Name: "Second"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

// The unique index on business_id carries the concurrent case: of N racing
// creations exactly one insert wins, the rest surface as conflicts. A
// single-connection pool serializes the sqlite writes so every goroutine
// reaches the index instead of failing on a busy database.
func TestCreateAgentConcurrentOnePerBusiness(t *testing.T) {
	db, err := repository.NewDatabaseConnection(&repository.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	repos := repository.NewGormRepositoryManager(db)

	svc := agentsvc.NewService(repos)
	businessID := seedBusiness(t, repos, "alice", "Acme")

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateAgent(context.Background(), "alice", &domain.CreateAgentRequest{BusinessID: businessID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error from concurrent create: %v", err)
		}
	}
	require.Equal(t, 1, created)
	require.Equal(t, workers-1, conflicts)
}

func TestCreateAgentTemperatureBounds(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()
	businessID := seedBusiness(t, repos, "alice", "Acme")

	for _, temperature := range []float64{-0.1, 2.1} {
		_, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{
			BusinessID:  businessID,
			Temperature: &temperature,
		})
		require.ErrorIs(t, err, domain.ErrInvalidState, "temperature %v", temperature)
	}

	edge := 2.0
	agent, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{
		BusinessID:  businessID,
		Temperature: &edge,
	})
	require.NoError(t, err)
	require.InDelta(t, 2.0, agent.Temperature, 1e-9)
}

func TestCreateAgentCrossTenant(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	businessID := seedBusiness(t, repos, "alice", "Acme")

	_, err := svc.CreateAgent(context.Background(), "bob", &domain.CreateAgentRequest{BusinessID: businessID})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetAgentWithPhone(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()
	businessID := seedBusiness(t, repos, "alice", "Acme")

	agent, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: businessID})
	require.NoError(t, err)

	got, err := svc.GetAgent(ctx, "alice", agent.ID)
	require.NoError(t, err)
	require.Equal(t, agent.ID, got.ID)
	require.Nil(t, got.PhoneNumber)

	_, err = svc.AttachPhoneNumber(ctx, "alice", &domain.AttachPhoneNumberRequest{
		AgentID:     agent.ID,
		PhoneNumber: "+14155550101",
	})
	require.NoError(t, err)

	got, err = svc.GetAgent(ctx, "alice", agent.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PhoneNumber)
	require.Equal(t, "+14155550101", got.PhoneNumber.PhoneNumber)

	byBusiness, err := svc.GetAgentByBusiness(ctx, "alice", businessID)
	require.NoError(t, err)
	require.Equal(t, agent.ID, byBusiness.ID)
	require.NotNil(t, byBusiness.PhoneNumber)
}

func TestUpdateAgent(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()
	businessID := seedBusiness(t, repos, "alice", "Acme")

	agent, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: businessID})
	require.NoError(t, err)

	name := "Front Desk"
	prompt := "You answer calls for a dental practice."
	status := domain.AgentStatusPaused
	updated, err := svc.UpdateAgent(ctx, "alice", agent.ID, &domain.UpdateAgentRequest{
		Name:   &name,
		Prompt: &prompt,
		Status: &status,
	})
	require.NoError(t, err)
	require.Equal(t, "Front Desk", updated.Name)
	require.Equal(t, prompt, updated.Prompt)
	require.Equal(t, domain.AgentStatusPaused, updated.Status)

	bad := domain.AgentStatus("sleeping")
	_, err = svc.UpdateAgent(ctx, "alice", agent.ID, &domain.UpdateAgentRequest{Status: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	tooHot := 3.0
	_, err = svc.UpdateAgent(ctx, "alice", agent.ID, &domain.UpdateAgentRequest{Temperature: &tooHot})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.UpdateAgent(ctx, "bob", agent.ID, &domain.UpdateAgentRequest{Name: &name})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAttachPhoneNumberInvariants(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()

	aliceBusiness := seedBusiness(t, repos, "alice", "Acme")
	bobBusiness := seedBusiness(t, repos, "bob", "Globex")

	aliceAgent, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: aliceBusiness})
	require.NoError(t, err)
	bobAgent, err := svc.CreateAgent(ctx, "bob", &domain.CreateAgentRequest{BusinessID: bobBusiness})
	require.NoError(t, err)

	_, err = svc.AttachPhoneNumber(ctx, "alice", &domain.AttachPhoneNumberRequest{
		AgentID:     aliceAgent.ID,
		PhoneNumber: "+14155550101",
	})
	require.NoError(t, err)

	// One number per agent.
	_, err = svc.AttachPhoneNumber(ctx, "alice", &domain.AttachPhoneNumberRequest{
		AgentID:     aliceAgent.ID,
		PhoneNumber: "+14155550102",
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	// The value itself is globally unique across tenants.
	_, err = svc.AttachPhoneNumber(ctx, "bob", &domain.AttachPhoneNumberRequest{
		AgentID:     bobAgent.ID,
		PhoneNumber: "+14155550101",
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.AttachPhoneNumber(ctx, "alice", &domain.AttachPhoneNumberRequest{AgentID: aliceAgent.ID})
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReleasePhoneNumber(t *testing.T) {
	repos := newTestRepos(t)
	svc := agentsvc.NewService(repos)
	ctx := context.Background()
	businessID := seedBusiness(t, repos, "alice", "Acme")

	agent, err := svc.CreateAgent(ctx, "alice", &domain.CreateAgentRequest{BusinessID: businessID})
	require.NoError(t, err)

	err = svc.ReleasePhoneNumber(ctx, "alice", agent.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AttachPhoneNumber(ctx, "alice", &domain.AttachPhoneNumberRequest{
		AgentID:     agent.ID,
		PhoneNumber: "+14155550101",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReleasePhoneNumber(ctx, "alice", agent.ID))

	number, err := svc.GetPhoneNumber(ctx, "alice", agent.ID)
	require.NoError(t, err)
	require.Nil(t, number)

	// The released value is reusable.
	_, err = svc.AttachPhoneNumber(ctx, "alice", &domain.AttachPhoneNumberRequest{
		AgentID:     agent.ID,
		PhoneNumber: "+14155550101",
	})
	require.NoError(t, err)
}
