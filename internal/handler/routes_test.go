package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/helloml/agent-core/internal/config"
	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/identity"
	"github.com/helloml/agent-core/internal/repository"
)

type fixedEmbedder struct{ dim int }

func (e fixedEmbedder) Embed(_ context.Context, texts []string) ([]domain.Vector, error) {
	out := make([]domain.Vector, len(texts))
	for i := range texts {
		v := make(domain.Vector, e.dim)
		v[i%e.dim] = 1
		out[i] = v
	}
	return out, nil
}

type passthroughRedactor struct{}

func (passthroughRedactor) Redact(_ context.Context, raw string) (string, error) {
	return raw, nil
}

type testServer struct {
	router   *mux.Router
	resolver *identity.Resolver
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.NewDatabaseConnection(&repository.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	repos := repository.NewGormRepositoryManager(db)

	cfg := &config.Config{
		Port:           "0",
		AuthSecret:     "test-secret",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		ChunkSize:      5,
		ChunkOverlap:   2,
		EmbeddingDim:   3,
	}

	manager := NewHandlerManager(cfg, repos, fixedEmbedder{dim: 3}, passthroughRedactor{})
	router := mux.NewRouter()
	manager.SetupAllRoutes(router)

	return &testServer{router: router, resolver: identity.NewResolver(cfg.AuthSecret)}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.resolver.IssueToken(&identity.Principal{ID: userID}, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/business", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "GET", "/api/business", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBusinessAgentFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")
	bob := s.token(t, "bob")

	w := s.do(t, "POST", "/api/business", alice, map[string]string{"name": "Acme Dental"})
	require.Equal(t, http.StatusCreated, w.Code)
	business := decode[domain.Business](t, w)
	require.Equal(t, "alice", business.OwnerUserID)

	w = s.do(t, "POST", "/api/agent", alice, map[string]interface{}{"business_id": business.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	agent := decode[domain.Agent](t, w)
	require.Equal(t, business.ID, agent.BusinessID)

	// A second agent for the same business conflicts.
	w = s.do(t, "POST", "/api/agent", alice, map[string]interface{}{"business_id": business.ID})
	require.Equal(t, http.StatusConflict, w.Code)

	// The other tenant sees a plain 404, whether reading or writing.
	w = s.do(t, "GET", fmt.Sprintf("/api/business/%d", business.ID), bob, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, "DELETE", fmt.Sprintf("/api/business/%d", business.ID), bob, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "POST", fmt.Sprintf("/api/agent/%d/phone", agent.ID), alice, map[string]string{"phone_number": "+14155550101"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, "GET", fmt.Sprintf("/api/agent/%d", agent.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	withPhone := decode[domain.AgentWithPhone](t, w)
	require.NotNil(t, withPhone.PhoneNumber)
	require.Equal(t, "+14155550101", withPhone.PhoneNumber.PhoneNumber)

	w = s.do(t, "DELETE", fmt.Sprintf("/api/business/%d", business.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "GET", fmt.Sprintf("/api/agent/%d", agent.ID), alice, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestKnowledgeFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	business := decode[domain.Business](t, s.do(t, "POST", "/api/business", alice, map[string]string{"name": "Acme"}))
	agent := decode[domain.Agent](t, s.do(t, "POST", "/api/agent", alice, map[string]interface{}{"business_id": business.ID}))

	w := s.do(t, "POST", fmt.Sprintf("/api/agent/%d/documents", agent.ID), alice, map[string]string{"filename": "faq.txt"})
	require.Equal(t, http.StatusCreated, w.Code)
	doc := decode[domain.Document](t, w)

	w = s.do(t, "POST", fmt.Sprintf("/api/document/%d/ingest", doc.ID), alice, map[string]string{"text": "ABCDEFGHIJ"})
	require.Equal(t, http.StatusOK, w.Code)
	ingested := decode[map[string]interface{}](t, w)
	require.EqualValues(t, 3, ingested["chunks"])

	w = s.do(t, "POST", fmt.Sprintf("/api/agent/%d/search", agent.ID), alice, map[string]interface{}{
		"embedding": []float32{1, 0, 0},
		"k":         2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	matches := decode[[]domain.ChunkMatch](t, w)
	require.Len(t, matches, 2)

	// Wrong query dimension is a caller error, not a 500.
	w = s.do(t, "POST", fmt.Sprintf("/api/agent/%d/search", agent.ID), alice, map[string]interface{}{
		"embedding": []float32{1, 0},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "DELETE", fmt.Sprintf("/api/document/%d", doc.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "GET", fmt.Sprintf("/api/agent/%d/documents", agent.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]domain.Document](t, w))
}

func TestConversationFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	business := decode[domain.Business](t, s.do(t, "POST", "/api/business", alice, map[string]string{"name": "Acme"}))
	agent := decode[domain.Agent](t, s.do(t, "POST", "/api/agent", alice, map[string]interface{}{"business_id": business.ID}))

	w := s.do(t, "POST", "/api/conversation", alice, map[string]interface{}{
		"agent_id":     agent.ID,
		"caller_phone": "+14155550123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	conversation := decode[domain.Conversation](t, w)
	require.Equal(t, domain.ConversationStatusInProgress, conversation.Status)

	w = s.do(t, "POST", fmt.Sprintf("/api/conversation/%d/messages", conversation.ID), alice, map[string]string{
		"role":    "user",
		"content": "when are you open",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, "POST", fmt.Sprintf("/api/conversation/%d/end", conversation.ID), alice, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	ended := decode[domain.Conversation](t, w)
	require.Equal(t, domain.ConversationStatusCompleted, ended.Status)
	require.NotNil(t, ended.EndedAt)

	// Ending twice is an invalid state transition.
	w = s.do(t, "POST", fmt.Sprintf("/api/conversation/%d/end", conversation.ID), alice, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", fmt.Sprintf("/api/agent/%d/conversations?status=completed", agent.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[map[string]interface{}](t, w)
	require.EqualValues(t, 1, listing["count"])

	w = s.do(t, "GET", fmt.Sprintf("/api/conversation/%d/messages", conversation.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]domain.Message](t, w), 1)
}
