package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/config"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// fakeSub records delivered events. Safe for delivery from the
// rerouter goroutine.
type fakeSub struct {
	id  string
	err error

	mu     sync.Mutex
	events []models.Event
}

func (s *fakeSub) ID() string { return s.id }

func (s *fakeSub) Deliver(ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSub) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *fakeSub) eventsOfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range s.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func testTuning() config.Tuning {
	return config.Tuning{
		HeartbeatSeconds:    30,
		LocationTTLSeconds:  300,
		RerouteSeconds:      120,
		RouteHistorySize:    10,
		ReconnectDelayMs:    500,
		ReconnectAttempts:   10,
		SessionIdleMinutes:  60,
		SendBuffer:          32,
		ChatHistoryLimit:    200,
		ProviderTimeoutSecs: 10,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(nil, nil, nil, testTuning(), zerolog.Nop())
}

func openRoom(t *testing.T, r *Registry) string {
	t.Helper()
	alert := &models.Alert{
		Type: models.EmergencyMedical,
		Lat:  -26.2041,
		Lng:  28.0473,
	}
	if _, err := r.CreateAlert(context.Background(), alert); err != nil {
		t.Fatal(err)
	}
	return alert.ID.String()
}

func TestJoinDeliversSnapshotFirst(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	sub := &fakeSub{id: "viewer-1"}
	if _, err := r.Join(alertID, sub, models.RoleObserver); err != nil {
		t.Fatal(err)
	}

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event after join, got %d", len(events))
	}
	if events[0].Type != models.EventSnapshot {
		t.Fatalf("first delivery should be a snapshot, got %s", events[0].Type)
	}
	snap := events[0].Snapshot
	if snap == nil || snap.AlertID != alertID {
		t.Fatalf("snapshot missing or wrong alert: %+v", snap)
	}
	if snap.Status != models.StatusConnecting {
		t.Fatalf("new room should be connecting, got %s", snap.Status)
	}
}

func TestJoinRejectedWhenRoomWentTerminal(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	// A join can look the session up just before teardown; by the time
	// it takes the session lock the room is already terminal.
	sess, ok := r.session(alertID)
	if !ok {
		t.Fatal("room should exist")
	}
	sess.mu.Lock()
	sess.status = models.StatusCompleted
	sess.mu.Unlock()

	sub := &fakeSub{id: "late-joiner"}
	if _, err := r.Join(alertID, sub, models.RoleObserver); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if len(sub.Events()) != 0 {
		t.Fatalf("a dead room must not deliver a snapshot, got %d events", len(sub.Events()))
	}

	sess.mu.Lock()
	members := len(sess.members)
	sess.mu.Unlock()
	if members != 0 {
		t.Fatalf("dead room retained %d members", members)
	}
}

func TestJoinIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	sub := &fakeSub{id: "viewer-1"}
	if _, err := r.Join(alertID, sub, models.RoleObserver); err != nil {
		t.Fatal(err)
	}
	snap, err := r.Join(alertID, sub, models.RoleObserver)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Subscribers != 1 {
		t.Fatalf("double join should not duplicate membership, got %d subscribers", snap.Subscribers)
	}

	// One fan-out per publish, even after joining twice.
	sample := models.LocationSample{Lat: -26.20, Lng: 28.04, Timestamp: 1}
	ev := models.NewLocationUpdate(alertID, models.RoleVictim, "victim-1", sample)
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if got := len(sub.eventsOfType(models.EventLocationUpdate)); got != 1 {
		t.Fatalf("expected 1 location event, got %d", got)
	}
}

func TestPublishUnknownRoom(t *testing.T) {
	r := newTestRegistry(t)
	ev := models.NewLocationUpdate(uuid.NewString(), models.RoleVictim, "v", models.LocationSample{})
	if err := r.Publish(context.Background(), ev); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := r.Snapshot(uuid.NewString()); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestFanOutPreservesPublishOrder(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	a := &fakeSub{id: "a"}
	b := &fakeSub{id: "b"}
	for _, sub := range []*fakeSub{a, b} {
		if _, err := r.Join(alertID, sub, models.RoleObserver); err != nil {
			t.Fatal(err)
		}
	}

	fixes := []models.LocationSample{
		{Lat: -26.01, Lng: 28.01, Timestamp: 1},
		{Lat: -26.02, Lng: 28.02, Timestamp: 2},
		{Lat: -26.03, Lng: 28.03, Timestamp: 3},
	}
	for _, fix := range fixes {
		ev := models.NewLocationUpdate(alertID, models.RoleVictim, "victim-1", fix)
		if err := r.Publish(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}

	for _, sub := range []*fakeSub{a, b} {
		got := sub.eventsOfType(models.EventLocationUpdate)
		if len(got) != len(fixes) {
			t.Fatalf("%s: expected %d location events, got %d", sub.id, len(fixes), len(got))
		}
		for i, ev := range got {
			if ev.Location.Timestamp != fixes[i].Timestamp {
				t.Fatalf("%s: event %d out of order: got ts %d, want %d",
					sub.id, i, ev.Location.Timestamp, fixes[i].Timestamp)
			}
		}
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	stayer := &fakeSub{id: "stayer"}
	leaver := &fakeSub{id: "leaver"}
	r.Join(alertID, stayer, models.RoleObserver)
	r.Join(alertID, leaver, models.RoleObserver)

	r.Leave(alertID, leaver.id)

	ev := models.NewLocationUpdate(alertID, models.RoleVictim, "v", models.LocationSample{Timestamp: 1})
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if got := len(leaver.eventsOfType(models.EventLocationUpdate)); got != 0 {
		t.Fatalf("leaver should receive nothing, got %d events", got)
	}
	if got := len(stayer.eventsOfType(models.EventLocationUpdate)); got != 1 {
		t.Fatalf("stayer should still receive events, got %d", got)
	}
}

func TestChatRelayTagged(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	victim := &fakeSub{id: "victim-1"}
	responder := &fakeSub{id: "agent-1"}
	r.Join(alertID, victim, models.RoleVictim)
	r.Join(alertID, responder, models.RoleResponder)

	ev := models.NewSOSResponse(alertID, models.RoleVictim, "victim-1", "please hurry")
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	for _, sub := range []*fakeSub{victim, responder} {
		relayed := sub.eventsOfType(models.EventAgentMessage)
		if len(relayed) != 1 {
			t.Fatalf("%s: expected 1 relayed message, got %d", sub.id, len(relayed))
		}
		msg := relayed[0]
		if msg.Message != "please hurry" || msg.Role != models.RoleVictim || msg.SenderID != "victim-1" {
			t.Fatalf("relayed message lost attribution: %+v", msg)
		}
	}
}

func TestUnresponsiveSubscriberDropped(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	healthy := &fakeSub{id: "healthy"}
	stuck := &fakeSub{id: "stuck"}
	r.Join(alertID, healthy, models.RoleObserver)
	r.Join(alertID, stuck, models.RoleObserver)

	stuck.mu.Lock()
	stuck.err = errors.New("buffer full")
	stuck.mu.Unlock()

	ev := models.NewLocationUpdate(alertID, models.RoleVictim, "v", models.LocationSample{Timestamp: 1})
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	snap, err := r.Snapshot(alertID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Subscribers != 1 {
		t.Fatalf("stuck subscriber should have been dropped, got %d subscribers", snap.Subscribers)
	}
	if got := len(healthy.eventsOfType(models.EventLocationUpdate)); got != 1 {
		t.Fatalf("healthy subscriber should be unaffected, got %d events", got)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	// Arrival before dispatch makes no sense.
	err := r.Publish(context.Background(), models.NewAgentArrived(alertID, "agent-1"))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	snap, err := r.Snapshot(alertID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.StatusConnecting {
		t.Fatalf("rejected transition must not change status, got %s", snap.Status)
	}
}

func TestResponderLocationAdvancesToTracking(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	sub := &fakeSub{id: "viewer"}
	r.Join(alertID, sub, models.RoleObserver)

	agent := models.Agent{ID: uuid.New(), Name: "Unit 12", Badge: "U-12"}
	if err := r.Publish(context.Background(), models.NewAgentAssigned(alertID, agent)); err != nil {
		t.Fatal(err)
	}
	if status, _ := r.Snapshot(alertID); status.Status != models.StatusDispatched {
		t.Fatalf("expected dispatched, got %s", status.Status)
	}

	fix := models.LocationSample{Lat: -26.18, Lng: 28.04, Timestamp: 1}
	ev := models.NewLocationUpdate(alertID, models.RoleResponder, agent.ID.String(), fix)
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	snap, _ := r.Snapshot(alertID)
	if snap.Status != models.StatusTracking {
		t.Fatalf("first responder fix should advance to tracking, got %s", snap.Status)
	}
	if snap.AgentLocation == nil || snap.AgentLocation.Timestamp != 1 {
		t.Fatalf("snapshot missing responder location: %+v", snap.AgentLocation)
	}

	// Observers see the outbound mirror, not the raw inbound event.
	if got := len(sub.eventsOfType(models.EventAgentLocation)); got != 1 {
		t.Fatalf("expected 1 agent location event, got %d", got)
	}
}

func TestCancellationTearsDownRoom(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	sub := &fakeSub{id: "viewer"}
	r.Join(alertID, sub, models.RoleObserver)

	if err := r.Publish(context.Background(), models.NewRescueCancelled(alertID, "dispatch")); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Snapshot(alertID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("cancelled room should be gone, got %v", err)
	}
	if err := r.Publish(context.Background(), models.NewRescueCancelled(alertID, "dispatch")); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("publishing into a cancelled room should fail, got %v", err)
	}

	// Subscribers heard about it before teardown.
	if got := len(sub.eventsOfType(models.EventRescueCancelled)); got != 1 {
		t.Fatalf("expected cancellation broadcast, got %d", got)
	}
}

func TestRouteHistoryWindow(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	for i := 1; i <= 13; i++ {
		route := models.Route{ComputedAt: int64(i)}
		if err := r.Publish(context.Background(), models.NewRouteUpdate(alertID, route)); err != nil {
			t.Fatal(err)
		}
	}

	sess, ok := r.session(alertID)
	if !ok {
		t.Fatal("session missing")
	}
	history := sess.RouteHistory()
	if len(history) != 10 {
		t.Fatalf("expected history capped at 10, got %d", len(history))
	}
	if history[0].ComputedAt != 4 || history[9].ComputedAt != 13 {
		t.Fatalf("oldest entries should be evicted first: got %d..%d",
			history[0].ComputedAt, history[9].ComputedAt)
	}
}

func TestSweepCancelsIdleRooms(t *testing.T) {
	r := newTestRegistry(t)
	alertID := openRoom(t, r)

	sess, _ := r.session(alertID)
	sess.mu.Lock()
	sess.lastActivity = sess.lastActivity.Add(-2 * testTuning().SessionIdle())
	sess.mu.Unlock()

	r.Sweep()

	if _, err := r.Snapshot(alertID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("idle room should have been cancelled, got %v", err)
	}
}
