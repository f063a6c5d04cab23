package crisislink

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event type tags understood by the tracking engine.
const (
	EventLocationUpdate = "user-location-update"
	EventJoinTracking   = "join_sos_tracking"
	EventLeaveTracking  = "leave_sos_tracking"
	EventSOSAlert       = "sos-alert"
	EventSOSResponse    = "user-send-sos-response"

	EventAgentLocation   = "agent_location_update"
	EventStatusUpdate    = "sos_status_update"
	EventAgentAssigned   = "agent_assigned"
	EventAgentArrived    = "agent_arrived"
	EventAgentMessage    = "sos-agent-message"
	EventRescueCompleted = "rescue_completed"
	EventRescueCancelled = "rescue_cancelled"
	EventRouteUpdate     = "route_update"
	EventSnapshot        = "snapshot"
	EventError           = "error"
)

// Participant roles.
const (
	RoleVictim     = "victim"
	RoleResponder  = "responder"
	RoleObserver   = "observer"
	RoleDispatcher = "dispatcher"
)

// Fix is a single device position fix.
type Fix struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	Battery     int     `json:"battery,omitempty"`
	ThreatLevel string  `json:"threat_level,omitempty"`
	Timestamp   int64   `json:"ts"`
	TTLSeconds  int     `json:"ttl,omitempty"`
}

// Event is the envelope exchanged over the tracking socket. Payload
// fields the client does not interpret are kept raw for callers that
// want them.
type Event struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	AlertID   string `json:"alert_id"`
	Timestamp int64  `json:"ts,omitempty"`
	Role      string `json:"role,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`

	Location *Fix            `json:"location,omitempty"`
	Status   string          `json:"status,omitempty"`
	Route    json.RawMessage `json:"route,omitempty"`
	Agent    json.RawMessage `json:"agent,omitempty"`
	Alert    json.RawMessage `json:"alert,omitempty"`
	Message  string          `json:"message,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

// AlertRequest is the payload for raising an SOS over the socket.
type AlertRequest struct {
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	ReporterID  string  `json:"reporter_id,omitempty"`
}

func newEvent(t, alertID string) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      t,
		AlertID:   alertID,
		Timestamp: time.Now().UnixMilli(),
	}
}
