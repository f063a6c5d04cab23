package models

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyType classifies an SOS alert.
type EmergencyType string

const (
	EmergencyMedical  EmergencyType = "medical"
	EmergencyFire     EmergencyType = "fire"
	EmergencyCrime    EmergencyType = "crime"
	EmergencyAccident EmergencyType = "accident"
	EmergencyOther    EmergencyType = "other"
)

// Status is the authoritative state of an alert's rescue.
// Transitions are monotonic along connecting → dispatched → tracking →
// arrived → completed; cancelled is reachable from any non-terminal state.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusDispatched Status = "dispatched"
	StatusTracking   Status = "tracking"
	StatusArrived    Status = "arrived"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further mutation is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Alert represents a single SOS emergency.
type Alert struct {
	ID          uuid.UUID     `json:"id"`
	Type        EmergencyType `json:"type"`
	Description string        `json:"description,omitempty"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	ReporterID  string        `json:"reporter_id,omitempty"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

// Location returns the reporter's coordinate pair.
func (a *Alert) Location() Point {
	return Point{Lat: a.Lat, Lng: a.Lng}
}
