package handlers

import (
	"net/http"
)

// StatsResponse represents the engine statistics response.
type StatsResponse struct {
	ActiveRooms    int   `json:"active_rooms"`
	TotalAgents    int64 `json:"total_agents"`
	ActiveAlerts   int64 `json:"active_alerts"`
	ResolvedAlerts int64 `json:"resolved_alerts"`
}

// Stats returns engine statistics for the operations dashboard.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		ActiveRooms: h.registry.ActiveRooms(),
	}

	if h.db != nil {
		ctx := r.Context()

		if agents, err := h.db.CountAgents(ctx); err == nil {
			resp.TotalAgents = agents
		}
		if active, err := h.db.CountActiveAlerts(ctx); err == nil {
			resp.ActiveAlerts = active
		}
		if _, total, err := h.db.ListAlertHistory(ctx, 1, 0); err == nil {
			resp.ResolvedAlerts = int64(total)
		}
	}

	h.JSON(w, http.StatusOK, resp)
}
