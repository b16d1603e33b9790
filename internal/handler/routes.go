package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/helloml/agent-core/internal/config"
	"github.com/helloml/agent-core/internal/identity"
	"github.com/helloml/agent-core/internal/repository"
	agentsvc "github.com/helloml/agent-core/internal/services/agent"
	conversationsvc "github.com/helloml/agent-core/internal/services/conversation"
	"github.com/helloml/agent-core/internal/services/knowledge"
	"github.com/helloml/agent-core/internal/services/tenancy"
)

// HandlerManager wires the services and registers all routes.
type HandlerManager struct {
	config       *config.Config
	repos        repository.RepositoryManager
	authResolver *identity.Resolver

	businessHandler     *BusinessHandler
	agentHandler        *AgentHandler
	knowledgeHandler    *KnowledgeHandler
	conversationHandler *ConversationHandler
}

// NewHandlerManager creates all services and handlers over the shared
// repository manager. embedder and redactor are the external collaborator
// implementations.
func NewHandlerManager(cfg *config.Config, repos repository.RepositoryManager, embedder knowledge.Embedder, redactor conversationsvc.Redactor) *HandlerManager {
	chunker := knowledge.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)

	tenancyService := tenancy.NewService(repos)
	agentService := agentsvc.NewService(repos)
	knowledgeService := knowledge.NewService(repos, embedder, chunker, cfg.EmbeddingDim)
	conversationService := conversationsvc.NewService(repos, redactor)

	return &HandlerManager{
		config:              cfg,
		repos:               repos,
		authResolver:        identity.NewResolver(cfg.AuthSecret),
		businessHandler:     NewBusinessHandler(tenancyService),
		agentHandler:        NewAgentHandler(agentService),
		knowledgeHandler:    NewKnowledgeHandler(knowledgeService),
		conversationHandler: NewConversationHandler(conversationService),
	}
}

// SetupAllRoutes registers every route with its middleware chain.
func (m *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(LoggingMiddleware)
	if m.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(RateLimitMiddleware(m.config.RateLimitRPS, m.config.RateLimitBurst))

	router.HandleFunc("/health", m.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(m.authResolver))

	// Business
	api.HandleFunc("/business", m.businessHandler.CreateBusiness).Methods("POST")
	api.HandleFunc("/business", m.businessHandler.ListBusinesses).Methods("GET")
	api.HandleFunc("/business/{id}", m.businessHandler.GetBusiness).Methods("GET")
	api.HandleFunc("/business/{id}", m.businessHandler.UpdateBusiness).Methods("PUT")
	api.HandleFunc("/business/{id}", m.businessHandler.DeleteBusiness).Methods("DELETE")
	api.HandleFunc("/business/{business_id}/agent", m.agentHandler.GetAgentByBusiness).Methods("GET")

	// Agent
	api.HandleFunc("/agent", m.agentHandler.CreateAgent).Methods("POST")
	api.HandleFunc("/agent/{id}", m.agentHandler.GetAgent).Methods("GET")
	api.HandleFunc("/agent/{id}", m.agentHandler.UpdateAgent).Methods("PUT")
	api.HandleFunc("/agent/{id}/phone", m.agentHandler.AttachPhoneNumber).Methods("POST")
	api.HandleFunc("/agent/{id}/phone", m.agentHandler.GetPhoneNumber).Methods("GET")
	api.HandleFunc("/agent/{id}/phone", m.agentHandler.ReleasePhoneNumber).Methods("DELETE")

	// Knowledge store
	api.HandleFunc("/agent/{agent_id}/documents", m.knowledgeHandler.UpsertDocument).Methods("POST")
	api.HandleFunc("/agent/{agent_id}/documents", m.knowledgeHandler.ListDocuments).Methods("GET")
	api.HandleFunc("/agent/{agent_id}/search", m.knowledgeHandler.Search).Methods("POST")
	api.HandleFunc("/document/{id}", m.knowledgeHandler.DeleteDocument).Methods("DELETE")
	api.HandleFunc("/document/{id}/ingest", m.knowledgeHandler.IngestDocument).Methods("POST")

	// Conversation log
	api.HandleFunc("/conversation", m.conversationHandler.StartConversation).Methods("POST")
	api.HandleFunc("/conversation/{id}", m.conversationHandler.GetConversation).Methods("GET")
	api.HandleFunc("/conversation/{id}", m.conversationHandler.DeleteConversation).Methods("DELETE")
	api.HandleFunc("/conversation/{id}/messages", m.conversationHandler.AppendMessage).Methods("POST")
	api.HandleFunc("/conversation/{id}/messages", m.conversationHandler.ListMessages).Methods("GET")
	api.HandleFunc("/conversation/{id}/end", m.conversationHandler.EndConversation).Methods("POST")
	api.HandleFunc("/agent/{agent_id}/conversations", m.conversationHandler.ListConversations).Methods("GET")
}

// handleHealth reports service and database health.
func (m *HandlerManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := m.repos.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
