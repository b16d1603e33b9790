package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helloml/agent-core/internal/domain"
)

// DocumentRepository handles database operations for documents and their
// chunks.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert reuses the document row keyed by (agent_id, filename) or inserts
// a new one. Re-uploading the same filename refreshes storage metadata
// instead of creating a sibling document.
func (r *DocumentRepository) Upsert(ctx context.Context, req *domain.UpsertDocumentRequest) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		First(&doc, "agent_id = ? AND filename = ?", req.AgentID, req.Filename).Error
	if err == nil {
		updates := map[string]interface{}{
			"storage_url": req.StorageURL,
			"updated_at":  time.Now(),
		}
		if req.FileType != "" {
			updates["file_type"] = req.FileType
		}
		if err := r.db.WithContext(ctx).Model(&doc).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update document %d: %w", doc.ID, err)
		}
		return &doc, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	doc = domain.Document{
		AgentID:    req.AgentID,
		Filename:   req.Filename,
		StorageURL: req.StorageURL,
	}
	if req.FileType != "" {
		doc.FileType = req.FileType
	}
	if err := r.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to create document for agent %d", req.AgentID))
	}
	return &doc, nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("document %d", id))
	}
	return &doc, nil
}

// ListByAgent retrieves all documents for an agent
func (r *DocumentRepository) ListByAgent(ctx context.Context, agentID uint) ([]*domain.Document, error) {
	var docs []*domain.Document
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("uploaded_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents for agent %d: %w", agentID, err)
	}
	return docs, nil
}

// SetError records an ingestion failure on the document. A nil message
// clears the error field.
func (r *DocumentRepository) SetError(ctx context.Context, id uint, message *string) error {
	result := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"error_message": message,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set error on document %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the document row itself. Chunks are removed by
// DeleteChunksByDocument within the same transaction.
func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Document{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteByAgentID removes the document rows under an agent as part of a
// cascade.
func (r *DocumentRepository) DeleteByAgentID(ctx context.Context, agentID uint) error {
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&domain.Document{}).Error; err != nil {
		return fmt.Errorf("failed to delete documents for agent %d: %w", agentID, err)
	}
	return nil
}

// UpsertChunks inserts chunks keyed on (document_id, chunk_index),
// replacing text and embedding on conflict. This is what makes ingestion
// retries idempotent.
func (r *DocumentRepository) UpsertChunks(ctx context.Context, chunks []*domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "chunk_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"chunk_text", "embedding"}),
		}).
		CreateInBatches(chunks, 100).Error; err != nil {
		return fmt.Errorf("failed to upsert document chunks: %w", err)
	}
	return nil
}

// DeleteChunksFrom removes chunks of a document whose index is >= minIndex.
// Used after re-ingestion to drop stale tail chunks when the new text is
// shorter than the previous version.
func (r *DocumentRepository) DeleteChunksFrom(ctx context.Context, documentID uint, minIndex int) error {
	if err := r.db.WithContext(ctx).
		Where("document_id = ? AND chunk_index >= ?", documentID, minIndex).
		Delete(&domain.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("failed to delete stale chunks for document %d: %w", documentID, err)
	}
	return nil
}

// DeleteChunksByDocument removes all chunks of a document.
func (r *DocumentRepository) DeleteChunksByDocument(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&domain.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunks for document %d: %w", documentID, err)
	}
	return nil
}

// DeleteChunksByAgentID removes all chunks under an agent's documents as
// part of a cascade. The subquery keeps the statement scoped to one agent
// subtree.
func (r *DocumentRepository) DeleteChunksByAgentID(ctx context.Context, agentID uint) error {
	sub := r.db.Model(&domain.Document{}).Select("id").Where("agent_id = ?", agentID)
	if err := r.db.WithContext(ctx).
		Where("document_id IN (?)", sub).
		Delete(&domain.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunks for agent %d: %w", agentID, err)
	}
	return nil
}

// GetChunkByID retrieves a single chunk by ID
func (r *DocumentRepository) GetChunkByID(ctx context.Context, id uint) (*domain.DocumentChunk, error) {
	var chunk domain.DocumentChunk
	if err := r.db.WithContext(ctx).First(&chunk, "id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("document chunk %d", id))
	}
	return &chunk, nil
}

// ChunksByAgent loads every chunk belonging to the agent's documents. The
// agent scoping happens in the query itself via the join, so chunks of
// other tenants are never scanned, let alone ranked.
func (r *DocumentRepository) ChunksByAgent(ctx context.Context, agentID uint) ([]*domain.DocumentChunk, error) {
	var chunks []*domain.DocumentChunk
	if err := r.db.WithContext(ctx).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.agent_id = ?", agentID).
		Order("document_chunks.document_id ASC, document_chunks.chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks for agent %d: %w", agentID, err)
	}
	return chunks, nil
}
