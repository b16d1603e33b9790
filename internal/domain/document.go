package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Vector is a fixed-dimension embedding stored as a JSON array. Serializing
// through Valuer/Scanner keeps the column portable across the postgres and
// sqlite drivers; the similarity scan deserializes back to []float32.
type Vector []float32

// Value implements the driver.Valuer interface for Vector
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for Vector
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}

	var bytes []byte
	switch val := value.(type) {
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		return fmt.Errorf("cannot scan %T into Vector", value)
	}

	return json.Unmarshal(bytes, v)
}

// Document is an uploaded knowledge source for an agent. ErrorMessage is
// non-nil when the last ingestion attempt failed; re-running ingestion for
// the same document is idempotent and clears it on success.
type Document struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	AgentID      uint      `json:"agent_id" gorm:"not null;index;uniqueIndex:idx_agent_filename"`
	Filename     string    `json:"filename" gorm:"type:varchar(512);not null;uniqueIndex:idx_agent_filename"`
	StorageURL   string    `json:"storage_url" gorm:"type:text"`
	FileType     string    `json:"file_type" gorm:"type:varchar(128);default:'text/plain'"`
	ErrorMessage *string   `json:"error_message" gorm:"type:text"`
	UploadedAt   time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Document
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk is one embedded span of a document's extracted text. The
// composite unique index on (document_id, chunk_index) makes chunk ordering
// collision-free and ingestion retries upsert instead of duplicating.
type DocumentChunk struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	DocumentID uint      `json:"document_id" gorm:"not null;index;uniqueIndex:idx_document_chunk"`
	ChunkIndex int       `json:"chunk_index" gorm:"not null;uniqueIndex:idx_document_chunk"`
	ChunkText  string    `json:"chunk_text" gorm:"type:text;not null"`
	Embedding  Vector    `json:"embedding" gorm:"type:json"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for DocumentChunk
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// UpsertDocumentRequest registers (or refreshes) a document row for an agent.
// Documents are keyed by (agent_id, filename): uploading the same filename
// again reuses the existing row.
type UpsertDocumentRequest struct {
	AgentID    uint   `json:"agent_id" validate:"required"`
	Filename   string `json:"filename" validate:"required"`
	StorageURL string `json:"storage_url,omitempty"`
	FileType   string `json:"file_type,omitempty"`
}

// ChunkMatch is one similarity search hit.
type ChunkMatch struct {
	DocumentID uint    `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"` // cosine distance, lower is closer
}
