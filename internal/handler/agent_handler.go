package handler

import (
	"encoding/json"
	"net/http"

	"github.com/helloml/agent-core/internal/domain"
	agentsvc "github.com/helloml/agent-core/internal/services/agent"
)

// AgentHandler handles HTTP requests for agents and their phone numbers
type AgentHandler struct {
	agents *agentsvc.Service
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agents *agentsvc.Service) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// CreateAgent creates the agent for a business.
func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	agent, err := h.agents.CreateAgent(r.Context(), principalID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

// GetAgent returns an agent with its phone number.
func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	agent, err := h.agents.GetAgent(r.Context(), principalID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// GetAgentByBusiness returns the agent of a business.
func (h *AgentHandler) GetAgentByBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, ok := pathID(r, "business_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid business id"})
		return
	}

	agent, err := h.agents.GetAgentByBusiness(r.Context(), principalID(r), businessID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// UpdateAgent patches an agent configuration.
func (h *AgentHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	var req domain.UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	agent, err := h.agents.UpdateAgent(r.Context(), principalID(r), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// AttachPhoneNumber records a provisioned number for an agent.
func (h *AgentHandler) AttachPhoneNumber(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	var req domain.AttachPhoneNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.AgentID = agentID

	number, err := h.agents.AttachPhoneNumber(r.Context(), principalID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, number)
}

// GetPhoneNumber returns the number attached to an agent.
func (h *AgentHandler) GetPhoneNumber(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	number, err := h.agents.GetPhoneNumber(r.Context(), principalID(r), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, number)
}

// ReleasePhoneNumber detaches an agent's phone number.
func (h *AgentHandler) ReleasePhoneNumber(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
		return
	}

	if err := h.agents.ReleasePhoneNumber(r.Context(), principalID(r), agentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
