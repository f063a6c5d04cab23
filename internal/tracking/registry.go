package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/config"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/metrics"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/routing"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/store"
)

// Registry maps alert IDs to live tracking rooms and owns every piece
// of session state. Rooms are independent: one lock per session, so a
// slow room never stalls another.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	db     store.DataStore
	redis  *store.RedisStore
	calc   *routing.Calculator
	tuning config.Tuning
	logger zerolog.Logger
}

// NewRegistry creates a registry. db and redis may be nil; archival and
// chat history mirrors are then skipped.
func NewRegistry(db store.DataStore, redis *store.RedisStore, calc *routing.Calculator, tuning config.Tuning, logger zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		db:       db,
		redis:    redis,
		calc:     calc,
		tuning:   tuning,
		logger:   logger.With().Str("component", "registry").Logger(),
	}
}

// CreateAlert opens a tracking room for a new SOS alert and persists
// the alert record.
func (r *Registry) CreateAlert(ctx context.Context, alert *models.Alert) (*Session, error) {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	alert.Status = models.StatusConnecting
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	if r.db != nil {
		if err := r.db.CreateAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("persist alert: %w", err)
		}
	}

	sess := newSession(alert, r.tuning.RouteHistorySize)

	r.mu.Lock()
	r.sessions[alert.ID.String()] = sess
	r.mu.Unlock()

	metrics.ActiveRooms.Inc()
	metrics.AlertsCreated.WithLabelValues(string(alert.Type)).Inc()
	r.logger.Info().
		Str("alert_id", alert.ID.String()).
		Str("type", string(alert.Type)).
		Msg("tracking room opened")

	return sess, nil
}

func (r *Registry) session(alertID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[alertID]
	return sess, ok
}

// Join subscribes a connection to an alert's room. Joins are
// idempotent: a second join from the same connection is a no-op. The
// joiner receives a snapshot event as its first message so it does not
// wait for the next publish to learn state.
func (r *Registry) Join(alertID string, sub Subscriber, role models.Role) (models.SessionSnapshot, error) {
	sess, ok := r.session(alertID)
	if !ok {
		return models.SessionSnapshot{}, ErrRoomNotFound
	}

	sess.mu.Lock()
	// The session may have gone terminal between the map lookup and
	// taking its lock; joining a dead room would leak the subscriber.
	if sess.status.Terminal() {
		sess.mu.Unlock()
		return models.SessionSnapshot{}, ErrRoomNotFound
	}
	if _, exists := sess.members[sub.ID()]; !exists {
		sess.members[sub.ID()] = member{sub: sub, role: role}
		metrics.ActiveSubscribers.Inc()
	}
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	if err := sub.Deliver(models.NewSnapshotEvent(alertID, snap)); err != nil {
		r.Leave(alertID, sub.ID())
		return snap, err
	}
	return snap, nil
}

// Leave cancels one connection's interest without affecting other
// subscribers.
func (r *Registry) Leave(alertID, subID string) {
	sess, ok := r.session(alertID)
	if !ok {
		return
	}
	sess.mu.Lock()
	if _, exists := sess.members[subID]; exists {
		delete(sess.members, subID)
		metrics.ActiveSubscribers.Dec()
	}
	sess.mu.Unlock()
}

// Snapshot returns a copy of the room's live state.
func (r *Registry) Snapshot(alertID string) (models.SessionSnapshot, error) {
	sess, ok := r.session(alertID)
	if !ok {
		return models.SessionSnapshot{}, ErrRoomNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Publish routes an inbound event through the state machine and fans
// the results out to the room. Events are processed under the session
// lock, so within one room subscribers observe publish order.
func (r *Registry) Publish(ctx context.Context, ev models.Event) error {
	sess, ok := r.session(ev.AlertID)
	if !ok {
		return ErrRoomNotFound
	}

	sess.mu.Lock()
	sess.lastActivity = time.Now()

	var err error
	terminal := false

	switch ev.Type {
	case models.EventLocationUpdate:
		err = r.applyLocation(sess, ev)

	case models.EventAgentAssigned:
		err = r.applyAssignment(sess, ev)

	case models.EventAgentArrived:
		if err = r.transitionLocked(sess, models.StatusArrived); err == nil {
			r.broadcastLocked(sess, ev)
		}

	case models.EventRescueCompleted:
		if err = r.transitionLocked(sess, models.StatusCompleted); err == nil {
			r.broadcastLocked(sess, ev)
			terminal = true
		}

	case models.EventRescueCancelled:
		if err = r.transitionLocked(sess, models.StatusCancelled); err == nil {
			r.broadcastLocked(sess, ev)
			terminal = true
		}

	case models.EventSOSResponse:
		r.relayMessage(ctx, sess, ev)

	case models.EventRouteUpdate:
		if ev.Route != nil {
			sess.appendRouteLocked(*ev.Route)
			r.broadcastLocked(sess, ev)
		}

	case models.EventStatusUpdate, models.EventAgentLocation,
		models.EventAgentMessage, models.EventSnapshot:
		// Already in outbound form; relay untouched.
		r.broadcastLocked(sess, ev)

	case models.EventJoinTracking, models.EventLeaveTracking, models.EventSOSAlert:
		err = fmt.Errorf("tracking: event %q is handled by the connection layer", ev.Type)

	default:
		err = fmt.Errorf("tracking: unknown event type %q", ev.Type)
	}

	sess.mu.Unlock()

	if terminal {
		r.teardown(sess)
	}
	return err
}

// applyLocation ingests a participant position. The first responder fix
// after assignment advances the room to tracking.
func (r *Registry) applyLocation(sess *Session, ev models.Event) error {
	if ev.Location == nil {
		return fmt.Errorf("tracking: location update without a sample")
	}
	loc := *ev.Location

	switch ev.Role {
	case models.RoleResponder:
		sess.agentLoc = &loc
		if sess.agent != nil {
			sess.agent.LastLocation = &loc
		}
		r.mirrorPresence(ev.SenderID, loc)

		r.broadcastLocked(sess, models.NewAgentLocation(ev.AlertID, ev.SenderID, loc))

		if sess.status == models.StatusDispatched {
			if err := r.transitionLocked(sess, models.StatusTracking); err != nil {
				return err
			}
		}
	default:
		sess.victimLoc = &loc
		r.broadcastLocked(sess, ev)
	}
	return nil
}

// applyAssignment records the dispatched responder and starts the
// per-room rerouter.
func (r *Registry) applyAssignment(sess *Session, ev models.Event) error {
	if ev.Agent == nil {
		return fmt.Errorf("tracking: assignment without an agent")
	}
	if err := r.transitionLocked(sess, models.StatusDispatched); err != nil {
		return err
	}

	agent := *ev.Agent
	agent.Status = models.AgentBusy
	sess.agent = &agent
	if agent.LastLocation != nil {
		loc := *agent.LastLocation
		sess.agentLoc = &loc
	}

	r.broadcastLocked(sess, ev)
	r.startRerouterLocked(sess)
	return nil
}

// transitionLocked advances the state machine and publishes the new
// status atomically with the event that caused it. Rejected transitions
// are logged and counted, never applied. Caller holds sess.mu.
func (r *Registry) transitionLocked(sess *Session, to models.Status) error {
	if err := checkTransition(sess.status, to); err != nil {
		metrics.TransitionsRejected.Inc()
		r.logger.Warn().
			Str("alert_id", sess.alert.ID.String()).
			Str("from", string(sess.status)).
			Str("to", string(to)).
			Msg("transition rejected")
		return err
	}
	sess.status = to
	sess.alert.Status = to
	r.broadcastLocked(sess, models.NewStatusUpdate(sess.alert.ID.String(), to))
	return nil
}

// broadcastLocked fans an event out to the current subscriber set.
// Delivery is at-most-once per subscriber per publish; an unresponsive
// subscriber is dropped rather than stalling the room. Caller holds
// sess.mu.
func (r *Registry) broadcastLocked(sess *Session, ev models.Event) {
	for id, m := range sess.members {
		if err := m.sub.Deliver(ev); err != nil {
			delete(sess.members, id)
			metrics.ActiveSubscribers.Dec()
			metrics.SubscribersDropped.Inc()
			r.logger.Warn().
				Str("alert_id", sess.alert.ID.String()).
				Str("subscriber", id).
				Err(err).
				Msg("subscriber dropped")
		}
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
}

// relayMessage tags a victim/responder chat message and fans it out.
func (r *Registry) relayMessage(ctx context.Context, sess *Session, ev models.Event) {
	relayed := models.NewAgentMessage(ev.AlertID, ev.Role, ev.SenderID, ev.Message)
	r.broadcastLocked(sess, relayed)
	metrics.MessagesRelayed.Inc()

	if r.redis != nil {
		msg := &models.ChatMessage{
			ID:        relayed.ID,
			AlertID:   ev.AlertID,
			SenderID:  ev.SenderID,
			Role:      ev.Role,
			Body:      ev.Message,
			Timestamp: relayed.Timestamp,
		}
		if err := r.redis.AddChatMessage(ctx, msg, r.tuning.ChatHistoryLimit); err != nil {
			r.logger.Warn().Err(err).Msg("chat history write failed")
		}
	}
}

// mirrorPresence pushes an agent fix to Redis for passive dashboards.
// Best effort; the in-memory session stays authoritative.
func (r *Registry) mirrorPresence(agentID string, loc models.LocationSample) {
	if r.redis == nil || agentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.redis.SetAgentPresence(ctx, agentID, loc); err != nil {
		r.logger.Warn().Err(err).Msg("presence mirror failed")
	}
}

// teardown archives a terminal alert, cancels the room's timers and
// removes the session. Subscribers were notified before this runs.
func (r *Registry) teardown(sess *Session) {
	sess.mu.Lock()
	if sess.cancelReroute != nil {
		sess.cancelReroute()
		sess.cancelReroute = nil
	}
	alertID := sess.alert.ID
	status := sess.status
	subscribers := len(sess.members)
	sess.members = make(map[string]member)
	sess.mu.Unlock()

	r.mu.Lock()
	delete(r.sessions, alertID.String())
	r.mu.Unlock()

	metrics.ActiveRooms.Dec()
	metrics.ActiveSubscribers.Sub(float64(subscribers))
	metrics.AlertsResolved.WithLabelValues(string(status)).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.db != nil {
		if err := r.db.ArchiveAlert(ctx, alertID, status, time.Now().UTC()); err != nil {
			r.logger.Error().Err(err).Str("alert_id", alertID.String()).Msg("alert archival failed")
		}
	}
	if r.redis != nil {
		if err := r.redis.DeleteChat(ctx, alertID.String()); err != nil {
			r.logger.Warn().Err(err).Msg("chat cleanup failed")
		}
	}

	r.logger.Info().
		Str("alert_id", alertID.String()).
		Str("status", string(status)).
		Msg("tracking room archived")
}

// Sweep cancels rooms with no activity past the idle deadline. Run
// periodically by the janitor.
func (r *Registry) Sweep() {
	deadline := time.Now().Add(-r.tuning.SessionIdle())

	r.mu.RLock()
	stale := make([]string, 0)
	for id, sess := range r.sessions {
		sess.mu.Lock()
		if sess.lastActivity.Before(deadline) && !sess.status.Terminal() {
			stale = append(stale, id)
		}
		sess.mu.Unlock()
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.logger.Info().Str("alert_id", id).Msg("cancelling idle tracking room")
		if err := r.Publish(context.Background(), models.NewRescueCancelled(id, "janitor")); err != nil {
			r.logger.Warn().Err(err).Str("alert_id", id).Msg("idle sweep failed")
		}
	}
}

// ActiveRooms returns the number of live sessions.
func (r *Registry) ActiveRooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown cancels every room's timers. Sessions are left in place for
// inspection; the process is exiting.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.sessions {
		sess.mu.Lock()
		if sess.cancelReroute != nil {
			sess.cancelReroute()
			sess.cancelReroute = nil
		}
		sess.mu.Unlock()
	}
}
