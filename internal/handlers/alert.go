package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/tracking"
)

var validate = validator.New()

// CreateAlertRequest represents the SOS creation request.
type CreateAlertRequest struct {
	Type        models.EmergencyType `json:"type" validate:"required,oneof=medical fire crime accident other"`
	Description string               `json:"description,omitempty"`
	Lat         float64              `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64              `json:"lng" validate:"gte=-180,lte=180"`
	ReporterID  string               `json:"reporter_id,omitempty"`
}

// CreateAlertResponse represents the SOS creation response.
type CreateAlertResponse struct {
	ID     string        `json:"id"`
	Status models.Status `json:"status"`
}

// AssignRequest names the responder dispatched to an alert.
type AssignRequest struct {
	AgentID string `json:"agent_id" validate:"required,uuid"`
}

// AlertHistoryResponse represents the resolved-alert listing.
type AlertHistoryResponse struct {
	Alerts []models.Alert `json:"alerts"`
	Total  int            `json:"total"`
}

// CreateAlert handles SOS activation: persists the alert and opens its
// tracking room in the connecting state.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid alert: "+err.Error())
		return
	}

	alert := &models.Alert{
		Type:        req.Type,
		Description: sanitizeText(req.Description, 1024),
		Lat:         req.Lat,
		Lng:         req.Lng,
		ReporterID:  req.ReporterID,
	}

	if _, err := h.registry.CreateAlert(r.Context(), alert); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create alert")
		return
	}

	h.JSON(w, http.StatusCreated, CreateAlertResponse{
		ID:     alert.ID.String(),
		Status: alert.Status,
	})
}

// GetAlert returns the live snapshot of an alert's room, falling back
// to the archived record for resolved alerts.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.registry.Snapshot(id)
	if err == nil {
		h.JSON(w, http.StatusOK, snap)
		return
	}
	if !errors.Is(err, tracking.ErrRoomNotFound) {
		h.Error(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	if h.db != nil {
		alertID, parseErr := uuid.Parse(id)
		if parseErr != nil {
			h.Error(w, http.StatusBadRequest, "invalid alert ID format")
			return
		}
		alert, dbErr := h.db.GetAlert(r.Context(), alertID)
		if dbErr != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		if alert != nil {
			h.JSON(w, http.StatusOK, alert)
			return
		}
	}

	h.Error(w, http.StatusNotFound, "alert not found")
}

// ListAlerts returns alerts with live rooms.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.JSON(w, http.StatusOK, AlertHistoryResponse{Alerts: []models.Alert{}})
		return
	}
	alerts, err := h.db.ListActiveAlerts(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	h.JSON(w, http.StatusOK, AlertHistoryResponse{Alerts: alerts, Total: len(alerts)})
}

// AlertHistory returns resolved alerts with pagination.
func (h *Handler) AlertHistory(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.JSON(w, http.StatusOK, AlertHistoryResponse{Alerts: []models.Alert{}})
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > 200 {
		limit = 200
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o > 0 {
		offset = o
	}

	alerts, total, err := h.db.ListAlertHistory(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	h.JSON(w, http.StatusOK, AlertHistoryResponse{Alerts: alerts, Total: total})
}

// AssignAgent dispatches a responder to an alert. This is the dispatch
// authority's entry point; it drives the dispatched transition.
func (h *Handler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.Error(w, http.StatusBadRequest, "agent_id must be a UUID")
		return
	}

	if h.db == nil {
		h.Error(w, http.StatusServiceUnavailable, "no identity store configured")
		return
	}
	agent, err := h.db.GetAgentByID(r.Context(), uuid.MustParse(req.AgentID))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	if err := h.registry.Publish(r.Context(), models.NewAgentAssigned(alertID, *agent)); err != nil {
		h.publishError(w, err)
		return
	}

	if err := h.db.UpdateAgentStatus(r.Context(), agent.ID, models.AgentBusy); err != nil {
		// Room state already advanced; agent availability lags until
		// the next status write.
		h.logger.Warn().Err(err).
			Str("agent_id", agent.ID.String()).
			Str("alert_id", alertID).
			Msg("agent status write failed")
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

// CancelAlert cancels an alert from any non-terminal state.
func (h *Handler) CancelAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	if err := h.registry.Publish(r.Context(), models.NewRescueCancelled(alertID, "dispatch")); err != nil {
		h.publishError(w, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// AlertMessages returns the bounded chat history for an alert.
func (h *Handler) AlertMessages(w http.ResponseWriter, r *http.Request) {
	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "no message store configured")
		return
	}
	alertID := chi.URLParam(r, "id")

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	messages, err := h.redis.GetChatMessages(r.Context(), alertID, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// publishError maps registry failures onto HTTP statuses.
func (h *Handler) publishError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracking.ErrRoomNotFound):
		h.Error(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, tracking.ErrInvalidTransition):
		h.Error(w, http.StatusConflict, err.Error())
	default:
		h.Error(w, http.StatusInternalServerError, "publish failed")
	}
}
