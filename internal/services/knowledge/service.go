// Package knowledge ingests agent documents into embedded chunks and
// answers similarity queries scoped to one agent.
package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/helloml/agent-core/internal/authz"
	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
	"github.com/helloml/agent-core/pkg/logger"
)

// Embedder converts text into fixed-dimension vectors. Implemented by the
// external embedding collaborator; the core treats it as a pure function.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]domain.Vector, error)
}

// embedBatchSize bounds how many chunk texts go into one embedding call.
const embedBatchSize = 64

// Service is the knowledge store.
type Service struct {
	repos    repository.RepositoryManager
	embedder Embedder
	chunker  *Chunker
	dim      int
}

// NewService creates a knowledge store over the given repositories and
// embedding collaborator. dim is the expected embedding dimension.
func NewService(repos repository.RepositoryManager, embedder Embedder, chunker *Chunker, dim int) *Service {
	return &Service{
		repos:    repos,
		embedder: embedder,
		chunker:  chunker,
		dim:      dim,
	}
}

// UpsertDocument registers (or refreshes) a document row for an agent,
// keyed by (agent_id, filename).
func (s *Service) UpsertDocument(ctx context.Context, principalID string, req *domain.UpsertDocumentRequest) (*domain.Document, error) {
	var doc *domain.Document
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.AuthorizeCreate(ctx, repos, principalID, authz.ResourceAgent, req.AgentID); err != nil {
			return err
		}
		var err error
		doc, err = repos.Document().Upsert(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns the documents of an agent.
func (s *Service) ListDocuments(ctx context.Context, principalID string, agentID uint) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, agentID, authz.OperationRead); err != nil {
			return err
		}
		var err error
		docs, err = repos.Document().ListByAgent(ctx, agentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument removes a document and all of its chunks in one
// transaction; a chunk never outlives its document.
func (s *Service) DeleteDocument(ctx context.Context, principalID string, documentID uint) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceDocument, documentID, authz.OperationDelete); err != nil {
			return err
		}
		if err := repos.Document().DeleteChunksByDocument(ctx, documentID); err != nil {
			return err
		}
		return repos.Document().Delete(ctx, documentID)
	})
}

// IngestDocument chunks and embeds the extracted text of a document and
// persists the chunks. Retries are idempotent: chunks upsert on
// (document_id, chunk_index) and stale tail chunks from a previous, longer
// version are dropped. An embedding failure is recorded on the document's
// error_message and surfaces as domain.ErrUpstreamFailure.
func (s *Service) IngestDocument(ctx context.Context, principalID string, documentID uint, text string) (int, error) {
	// Authorization and the existence check run first, in their own
	// transaction; the embedding calls below are slow external work that
	// must not hold a transaction open.
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		return authz.Authorize(ctx, repos, principalID, authz.ResourceDocument, documentID, authz.OperationUpdate)
	})
	if err != nil {
		return 0, err
	}

	texts := s.chunker.Split(text)
	if len(texts) == 0 {
		return 0, fmt.Errorf("document %d has no text to embed: %w", documentID, domain.ErrInvalidState)
	}

	chunks := make([]*domain.DocumentChunk, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		batch := texts[i:min(i+embedBatchSize, len(texts))]
		embeddings, err := s.embedder.Embed(ctx, batch)
		if err != nil {
			s.recordIngestionError(ctx, documentID, err)
			return 0, fmt.Errorf("embedding failed for document %d: %v: %w", documentID, err, domain.ErrUpstreamFailure)
		}
		if len(embeddings) != len(batch) {
			err := fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(batch))
			s.recordIngestionError(ctx, documentID, err)
			return 0, fmt.Errorf("document %d: %v: %w", documentID, err, domain.ErrUpstreamFailure)
		}
		for j, embedding := range embeddings {
			if s.dim > 0 && len(embedding) != s.dim {
				err := fmt.Errorf("embedding has dimension %d, want %d", len(embedding), s.dim)
				s.recordIngestionError(ctx, documentID, err)
				return 0, fmt.Errorf("document %d: %v: %w", documentID, err, domain.ErrUpstreamFailure)
			}
			chunks = append(chunks, &domain.DocumentChunk{
				DocumentID: documentID,
				ChunkIndex: i + j,
				ChunkText:  batch[j],
				Embedding:  embedding,
			})
		}
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		// Re-check ownership against the snapshot the writes happen in;
		// the chain may have changed while embeddings were computed.
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceDocument, documentID, authz.OperationUpdate); err != nil {
			return err
		}
		if err := repos.Document().UpsertChunks(ctx, chunks); err != nil {
			return err
		}
		if err := repos.Document().DeleteChunksFrom(ctx, documentID, len(chunks)); err != nil {
			return err
		}
		return repos.Document().SetError(ctx, documentID, nil)
	})
	if err != nil {
		return 0, err
	}

	logger.Base().Info("document ingested",
		zap.Uint("document_id", documentID),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// Search returns up to k chunks of the agent's documents ordered by cosine
// distance to the query embedding (lower is closer), ties broken by chunk
// index. Scoping is structural: the chunk query joins through documents on
// agent_id, so no other tenant's chunks are ever scanned.
func (s *Service) Search(ctx context.Context, principalID string, agentID uint, query domain.Vector, k int) ([]*domain.ChunkMatch, error) {
	if s.dim > 0 && len(query) != s.dim {
		return nil, fmt.Errorf("query embedding has dimension %d, want %d: %w", len(query), s.dim, domain.ErrInvalidState)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive: %w", domain.ErrInvalidState)
	}

	var chunks []*domain.DocumentChunk
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := authz.Authorize(ctx, repos, principalID, authz.ResourceAgent, agentID, authz.OperationRead); err != nil {
			return err
		}
		var err error
		chunks, err = repos.Document().ChunksByAgent(ctx, agentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.ChunkMatch, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) != len(query) {
			continue // skip chunks ingested under a different model
		}
		matches = append(matches, &domain.ChunkMatch{
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.ChunkIndex,
			ChunkText:  chunk.ChunkText,
			Score:      cosineDistance(query, chunk.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		return matches[i].ChunkIndex < matches[j].ChunkIndex
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// recordIngestionError stores the failure on the document so it is visible
// to the caller and retriable; best effort, the original error wins.
func (s *Service) recordIngestionError(ctx context.Context, documentID uint, cause error) {
	msg := cause.Error()
	if err := s.repos.Document().SetError(ctx, documentID, &msg); err != nil {
		logger.Base().Error("failed to record ingestion error",
			zap.Uint("document_id", documentID),
			zap.Error(err),
		)
	}
}

// cosineDistance is 1 - cosine similarity; 0 means identical direction.
// A zero-magnitude vector is treated as maximally distant.
func cosineDistance(a, b domain.Vector) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
