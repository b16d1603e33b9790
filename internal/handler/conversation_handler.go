package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/helloml/agent-core/internal/domain"
	conversationsvc "github.com/helloml/agent-core/internal/services/conversation"
)

// ConversationHandler handles HTTP requests for the conversation log
type ConversationHandler struct {
	conversations *conversationsvc.Service
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *conversationsvc.Service) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// StartConversation opens a transcript for an inbound call.
func (h *ConversationHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req domain.StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	conversation, err := h.conversations.Start(r.Context(), principalID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

// GetConversation returns one conversation.
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		return
	}

	conversation, err := h.conversations.Get(r.Context(), principalID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// ListConversations returns an agent's conversations with optional status
// filter and limit/offset pagination.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "agent_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	query := r.URL.Query()
	status := domain.ConversationStatus(query.Get("status"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	conversations, err := h.conversations.ListByAgent(r.Context(), principalID(r), agentID, status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"count":         len(conversations),
		"limit":         limit,
		"offset":        offset,
	})
}

// AppendMessage appends one transcript turn after redaction.
func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		return
	}

	var req domain.AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	message, err := h.conversations.AppendMessage(r.Context(), principalID(r), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// ListMessages returns a conversation's messages in order.
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		return
	}

	messages, err := h.conversations.ListMessages(r.Context(), principalID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// EndConversation transitions a conversation into a terminal status.
func (h *ConversationHandler) EndConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		return
	}

	req := domain.EndConversationRequest{Status: domain.ConversationStatusCompleted}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	conversation, err := h.conversations.End(r.Context(), principalID(r), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// DeleteConversation removes a conversation and its messages.
func (h *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		return
	}

	if err := h.conversations.Delete(r.Context(), principalID(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
