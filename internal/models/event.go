package models

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType tags every event flowing through a tracking room.
// Each kind has exactly one constructor below; consumers switch on the
// tag rather than on free-form handler names.
type EventType string

const (
	// Inbound from devices
	EventLocationUpdate EventType = "user-location-update"
	EventJoinTracking   EventType = "join_sos_tracking"
	EventLeaveTracking  EventType = "leave_sos_tracking"
	EventSOSAlert       EventType = "sos-alert"
	EventSOSResponse    EventType = "user-send-sos-response"

	// Outbound to subscribers
	EventAgentLocation   EventType = "agent_location_update"
	EventStatusUpdate    EventType = "sos_status_update"
	EventAgentAssigned   EventType = "agent_assigned"
	EventAgentArrived    EventType = "agent_arrived"
	EventAgentMessage    EventType = "sos-agent-message"
	EventRescueCompleted EventType = "rescue_completed"
	EventRescueCancelled EventType = "rescue_cancelled"
	EventRouteUpdate     EventType = "route_update"
	EventSnapshot        EventType = "snapshot"
	EventError           EventType = "error"
)

// Role identifies a room participant's part in a rescue.
type Role string

const (
	RoleVictim     Role = "victim"
	RoleResponder  Role = "responder"
	RoleObserver   Role = "observer"
	RoleDispatcher Role = "dispatcher"
)

// SessionSnapshot is the full room state delivered to late joiners.
type SessionSnapshot struct {
	AlertID        string          `json:"alert_id"`
	Status         Status          `json:"status"`
	Agent          *Agent          `json:"agent,omitempty"`
	Route          *Route          `json:"route,omitempty"`
	VictimLocation *LocationSample `json:"victim_location,omitempty"`
	AgentLocation  *LocationSample `json:"agent_location,omitempty"`
	Subscribers    int             `json:"subscribers"`
	UpdatedAt      int64           `json:"updated_at"` // Unix ms
}

// Event is the single envelope for everything published into a room.
// Only the fields relevant to the tagged kind are populated.
type Event struct {
	ID        string    `json:"id"` // ULID
	Type      EventType `json:"type"`
	AlertID   string    `json:"alert_id"`
	Timestamp int64     `json:"ts"` // Unix ms
	Role      Role      `json:"role,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`

	Location *LocationSample  `json:"location,omitempty"`
	Status   Status           `json:"status,omitempty"`
	Route    *Route           `json:"route,omitempty"`
	Agent    *Agent           `json:"agent,omitempty"`
	Alert    *Alert           `json:"alert,omitempty"`
	Message  string           `json:"message,omitempty"`
	Snapshot *SessionSnapshot `json:"snapshot,omitempty"`
}

func newEvent(t EventType, alertID string) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      t,
		AlertID:   alertID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewLocationUpdate carries a participant's position into a room.
func NewLocationUpdate(alertID string, role Role, senderID string, sample LocationSample) Event {
	ev := newEvent(EventLocationUpdate, alertID)
	ev.Role = role
	ev.SenderID = senderID
	ev.Location = &sample
	return ev
}

// NewAgentLocation is the outbound mirror of a responder position update.
func NewAgentLocation(alertID string, agentID string, sample LocationSample) Event {
	ev := newEvent(EventAgentLocation, alertID)
	ev.Role = RoleResponder
	ev.SenderID = agentID
	ev.Location = &sample
	return ev
}

// NewJoinTracking subscribes the sender to a room.
func NewJoinTracking(alertID string, role Role, senderID string) Event {
	ev := newEvent(EventJoinTracking, alertID)
	ev.Role = role
	ev.SenderID = senderID
	return ev
}

// NewLeaveTracking cancels the sender's interest in a room.
func NewLeaveTracking(alertID string, senderID string) Event {
	ev := newEvent(EventLeaveTracking, alertID)
	ev.SenderID = senderID
	return ev
}

// NewStatusUpdate announces an accepted state transition.
func NewStatusUpdate(alertID string, status Status) Event {
	ev := newEvent(EventStatusUpdate, alertID)
	ev.Status = status
	return ev
}

// NewAgentAssigned announces the responder dispatched to an alert.
func NewAgentAssigned(alertID string, agent Agent) Event {
	ev := newEvent(EventAgentAssigned, alertID)
	ev.Agent = &agent
	return ev
}

// NewAgentArrived is the explicit arrival signal from the responder.
// Arrival is never inferred from coordinates.
func NewAgentArrived(alertID string, agentID string) Event {
	ev := newEvent(EventAgentArrived, alertID)
	ev.Role = RoleResponder
	ev.SenderID = agentID
	return ev
}

// NewSOSResponse is a chat message between victim and responder.
func NewSOSResponse(alertID string, role Role, senderID, body string) Event {
	ev := newEvent(EventSOSResponse, alertID)
	ev.Role = role
	ev.SenderID = senderID
	ev.Message = body
	return ev
}

// NewAgentMessage is the relayed, tagged form of a chat message.
func NewAgentMessage(alertID string, role Role, senderID, body string) Event {
	ev := newEvent(EventAgentMessage, alertID)
	ev.Role = role
	ev.SenderID = senderID
	ev.Message = body
	return ev
}

// NewRouteUpdate publishes a freshly computed route and ETA.
func NewRouteUpdate(alertID string, route Route) Event {
	ev := newEvent(EventRouteUpdate, alertID)
	ev.Route = &route
	return ev
}

// NewRescueCompleted is the dispatch authority's resolution signal.
func NewRescueCompleted(alertID string, senderID string) Event {
	ev := newEvent(EventRescueCompleted, alertID)
	ev.Role = RoleDispatcher
	ev.SenderID = senderID
	return ev
}

// NewRescueCancelled cancels an alert from any non-terminal state.
func NewRescueCancelled(alertID string, senderID string) Event {
	ev := newEvent(EventRescueCancelled, alertID)
	ev.SenderID = senderID
	return ev
}

// NewSOSAlert raises a new emergency over the socket. The alert carries
// the emergency type, description and reporter location.
func NewSOSAlert(alert Alert, senderID string) Event {
	ev := newEvent(EventSOSAlert, alert.ID.String())
	ev.Role = RoleVictim
	ev.SenderID = senderID
	ev.Alert = &alert
	return ev
}

// NewErrorEvent surfaces a per-connection protocol failure to its
// sender. It is never fanned out to a room.
func NewErrorEvent(alertID, message string) Event {
	ev := newEvent(EventError, alertID)
	ev.Message = message
	return ev
}

// NewSnapshotEvent delivers current room state to a late joiner.
func NewSnapshotEvent(alertID string, snap SessionSnapshot) Event {
	ev := newEvent(EventSnapshot, alertID)
	ev.Snapshot = &snap
	return ev
}
