package handler

import (
	"encoding/json"
	"net/http"

	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/services/knowledge"
)

// KnowledgeHandler handles HTTP requests for documents, ingestion and
// similarity search
type KnowledgeHandler struct {
	knowledge *knowledge.Service
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(knowledgeService *knowledge.Service) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledgeService}
}

// UpsertDocument registers or refreshes a document row for an agent.
func (h *KnowledgeHandler) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "agent_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	var req domain.UpsertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.AgentID = agentID
	if req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}

	doc, err := h.knowledge.UpsertDocument(r.Context(), principalID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns an agent's documents.
func (h *KnowledgeHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "agent_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	docs, err := h.knowledge.ListDocuments(r.Context(), principalID(r), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// DeleteDocument removes a document together with its chunks.
func (h *KnowledgeHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		return
	}

	if err := h.knowledge.DeleteDocument(r.Context(), principalID(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ingestRequest is the entry point the extraction collaborator calls with
// the document's extracted text.
type ingestRequest struct {
	Text string `json:"text"`
}

// IngestDocument chunks, embeds and persists a document's text.
func (h *KnowledgeHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	count, err := h.knowledge.IngestDocument(r.Context(), principalID(r), id, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "chunks": count})
}

// searchRequest carries a query embedding produced by the embedding
// collaborator and the number of matches wanted.
type searchRequest struct {
	Embedding domain.Vector `json:"embedding"`
	K         int           `json:"k"`
}

// Search returns the k nearest chunks of the agent's documents.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "agent_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.K <= 0 {
		req.K = 8
	}

	matches, err := h.knowledge.Search(r.Context(), principalID(r), agentID, req.Embedding, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
