package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// AgentResponse represents the agent profile response. Presence comes
// from the Redis mirror when the agent has reported recently.
type AgentResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Badge        string                 `json:"badge,omitempty"`
	Status       models.AgentStatus     `json:"status"`
	LastLocation *models.LocationSample `json:"last_location,omitempty"`
}

// GetAgent handles fetching a responder profile.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.Error(w, http.StatusServiceUnavailable, "no identity store configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent ID format")
		return
	}

	agent, err := h.db.GetAgentByID(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	resp := AgentResponse{
		ID:     agent.ID.String(),
		Name:   agent.Name,
		Badge:  agent.Badge,
		Status: agent.Status,
	}

	if h.redis != nil {
		if loc, err := h.redis.GetAgentPresence(r.Context(), agent.ID.String()); err == nil && loc != nil {
			resp.LastLocation = loc
		}
	}

	h.JSON(w, http.StatusOK, resp)
}
