package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/identity"
	"github.com/helloml/agent-core/internal/services/tenancy"
)

// BusinessHandler handles HTTP requests for businesses
type BusinessHandler struct {
	tenancy *tenancy.Service
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(tenancyService *tenancy.Service) *BusinessHandler {
	return &BusinessHandler{tenancy: tenancyService}
}

// principalID extracts the authenticated principal id; the auth middleware
// guarantees it is present on routes that reach here.
func principalID(r *http.Request) string {
	principal, _ := identity.FromContext(r.Context())
	if principal == nil {
		return ""
	}
	return principal.ID
}

// pathID parses the numeric {id}-style path variable named key.
func pathID(r *http.Request, key string) (uint, bool) {
	raw := mux.Vars(r)[key]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// CreateBusiness creates a business owned by the caller.
func (h *BusinessHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	business, err := h.tenancy.CreateBusiness(r.Context(), principalID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, business)
}

// GetBusiness returns one business of the caller.
func (h *BusinessHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid business id"})
		return
	}

	business, err := h.tenancy.GetBusiness(r.Context(), principalID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, business)
}

// ListBusinesses returns all businesses of the caller.
func (h *BusinessHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.tenancy.ListBusinesses(r.Context(), principalID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, businesses)
}

// UpdateBusiness patches a business of the caller.
func (h *BusinessHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid business id"})
		return
	}

	var req domain.UpdateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	business, err := h.tenancy.UpdateBusiness(r.Context(), principalID(r), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, business)
}

// DeleteBusiness removes a business and its entire subtree.
func (h *BusinessHandler) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid business id"})
		return
	}

	if err := h.tenancy.DeleteBusiness(r.Context(), principalID(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
