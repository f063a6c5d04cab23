package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentStatus represents a responder's availability.
type AgentStatus string

const (
	AgentAvailable AgentStatus = "available"
	AgentBusy      AgentStatus = "busy"
	AgentOffline   AgentStatus = "offline"
)

// Agent represents a registered rescue responder.
// LastLocation is written only through the agent's own location-update path.
type Agent struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Badge        string          `json:"badge,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Status       AgentStatus     `json:"status"`
	LastLocation *LocationSample `json:"last_location,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
