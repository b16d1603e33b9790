package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/helloml/agent-core/internal/adapters/openai"
	"github.com/helloml/agent-core/internal/adapters/redact"
	"github.com/helloml/agent-core/internal/config"
	"github.com/helloml/agent-core/internal/handler"
	"github.com/helloml/agent-core/internal/repository"
	"github.com/helloml/agent-core/pkg/logger"
)

// Server is the agent core HTTP server.
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
	repos          repository.RepositoryManager
}

// NewServer builds the server, its database connection and all handlers.
func NewServer(cfg *config.Config) (*Server, error) {
	repos, err := repository.NewRepositoryManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository manager: %w", err)
	}

	embedder := openai.NewEmbeddingsClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	redactor := redact.NewPatternRedactor()

	router := mux.NewRouter()
	handlerManager := handler.NewHandlerManager(cfg, repos, embedder, redactor)
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
		repos:          repos,
	}, nil
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load()
	if cfg.AuthSecret == "" {
		logger.Base().Fatal("AUTH_SECRET is required")
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Base().Fatal("Failed to initialize server", zap.Error(err))
	}
	defer server.repos.Close()

	if err := server.Start(); err != nil {
		logger.Base().Fatal("Server exited", zap.Error(err))
	}
}
