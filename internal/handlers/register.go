package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/metrics"
)

// Badge numbers: alphanumeric with hyphens, 2-32 chars.
var badgeRegex = regexp.MustCompile(`^[a-zA-Z0-9-]{2,32}$`)

// RegisterRequest represents the agent registration request body.
type RegisterRequest struct {
	Name  string `json:"name"`
	Badge string `json:"badge"`
	Phone string `json:"phone,omitempty"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	ID string `json:"id"`
}

// Register handles responder registration. Registration is idempotent
// on badge number: re-registering an existing badge returns the
// existing identity.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.Error(w, http.StatusServiceUnavailable, "no identity store configured")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = sanitizeText(req.Name, 100)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !badgeRegex.MatchString(req.Badge) {
		h.Error(w, http.StatusBadRequest, "badge must be 2-32 characters, alphanumeric with hyphens")
		return
	}

	existing, err := h.db.GetAgentByBadge(r.Context(), req.Badge)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if existing != nil {
		h.JSON(w, http.StatusOK, RegisterResponse{ID: existing.ID.String()})
		return
	}

	agent, err := h.db.CreateAgent(r.Context(), req.Name, req.Badge, sanitizeText(req.Phone, 32))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	metrics.AgentsRegistered.Inc()
	h.JSON(w, http.StatusCreated, RegisterResponse{ID: agent.ID.String()})
}
