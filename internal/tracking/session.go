package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// Subscriber is one connection's handle into a room. Deliver must not
// block; an error drops the subscriber from the room.
type Subscriber interface {
	ID() string
	Deliver(ev models.Event) error
}

type member struct {
	sub  Subscriber
	role models.Role
}

// Session is the live state associated with one alert room. All
// mutation goes through the registry's Join/Leave/Publish; nothing else
// writes these fields.
type Session struct {
	mu sync.Mutex

	alert   *models.Alert
	status  models.Status
	members map[string]member

	agent     *models.Agent
	victimLoc *models.LocationSample
	agentLoc  *models.LocationSample

	route       *models.Route
	history     []models.Route
	historySize int

	lastActivity  time.Time
	cancelReroute context.CancelFunc
}

func newSession(alert *models.Alert, historySize int) *Session {
	return &Session{
		alert:        alert,
		status:       models.StatusConnecting,
		members:      make(map[string]member),
		historySize:  historySize,
		lastActivity: time.Now(),
	}
}

// snapshotLocked builds the room snapshot. Caller holds s.mu.
func (s *Session) snapshotLocked() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		AlertID:     s.alert.ID.String(),
		Status:      s.status,
		Agent:       s.agent,
		Route:       s.route,
		Subscribers: len(s.members),
		UpdatedAt:   s.lastActivity.UnixMilli(),
	}
	if s.victimLoc != nil {
		loc := *s.victimLoc
		snap.VictimLocation = &loc
	}
	if s.agentLoc != nil {
		loc := *s.agentLoc
		snap.AgentLocation = &loc
	}
	return snap
}

// appendRouteLocked records a selection in the bounded history, oldest
// evicted beyond the window. Caller holds s.mu.
func (s *Session) appendRouteLocked(route models.Route) {
	s.route = &route
	s.history = append(s.history, route)
	if len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
}

// Status returns the session's current status.
func (s *Session) Status() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RouteHistory returns a copy of the bounded selection history, oldest
// first.
func (s *Session) RouteHistory() []models.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Route, len(s.history))
	copy(out, s.history)
	return out
}
