package crisislink

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeEngine is a minimal tracking socket: it records joins and
// location updates, answers joins with a snapshot, and lets tests kill
// connections at will.
type fakeEngine struct {
	upgrader websocket.Upgrader

	mu        sync.Mutex
	conns     []*websocket.Conn
	joins     []string
	locations []Event
}

func (e *fakeEngine) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.conns = append(e.conns, conn)
	e.mu.Unlock()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		e.mu.Lock()
		switch ev.Type {
		case EventJoinTracking:
			e.joins = append(e.joins, ev.AlertID)
		case EventLocationUpdate:
			e.locations = append(e.locations, ev)
		}
		e.mu.Unlock()

		if ev.Type == EventJoinTracking {
			conn.WriteJSON(Event{Type: EventSnapshot, AlertID: ev.AlertID})
		}
	}
}

func (e *fakeEngine) joinCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.joins)
}

func (e *fakeEngine) locationCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.locations)
}

// dropConnections closes every live socket, simulating a network blip.
func (e *fakeEngine) dropConnections() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, conn := range e.conns {
		conn.Close()
	}
	e.conns = nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestClient(t *testing.T, serverURL string, cfg Config) *Client {
	t.Helper()
	cfg.ServerURL = serverURL
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 20 * time.Millisecond
	}
	c := NewClient(cfg)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestJoinDeliversSnapshot(t *testing.T) {
	engine := &fakeEngine{}
	srv := httptest.NewServer(http.HandlerFunc(engine.handler))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{Role: RoleObserver})

	var mu sync.Mutex
	var received []Event
	c.OnEvent(func(ev Event) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	})

	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := c.JoinRoom("alert-1"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	if received[0].Type != EventSnapshot || received[0].AlertID != "alert-1" {
		t.Fatalf("expected a snapshot for alert-1, got %+v", received[0])
	}
}

func TestReconnectResumesRoomMembership(t *testing.T) {
	engine := &fakeEngine{}
	srv := httptest.NewServer(http.HandlerFunc(engine.handler))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{Role: RoleObserver})
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := c.JoinRoom("alert-1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return engine.joinCount() == 1 })

	// Kill the connection. The client must come back and rejoin on its
	// own, with no action from the caller.
	engine.dropConnections()

	waitFor(t, 2*time.Second, func() bool { return engine.joinCount() == 2 })

	engine.mu.Lock()
	rejoined := engine.joins[1]
	engine.mu.Unlock()
	if rejoined != "alert-1" {
		t.Fatalf("expected rejoin of alert-1, got %s", rejoined)
	}

	rooms := c.Rooms()
	if len(rooms) != 1 || rooms[0] != "alert-1" {
		t.Fatalf("membership should survive the reconnect, got %v", rooms)
	}
}

func TestConnectionLostAfterExhaustedRetries(t *testing.T) {
	engine := &fakeEngine{}
	srv := httptest.NewServer(http.HandlerFunc(engine.handler))

	c := newTestClient(t, srv.URL, Config{
		Role:              RoleObserver,
		ReconnectDelay:    10 * time.Millisecond,
		ReconnectAttempts: 3,
	})
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}

	// Take the whole engine down; every retry must fail. Close only
	// stops the listener — hijacked websocket conns are untracked by
	// httptest — so drop the live sockets too.
	srv.Close()
	engine.dropConnections()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client should have given up")
	}
	if !errors.Is(c.Err(), ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", c.Err())
	}
	if err := c.Send(Event{Type: EventSOSResponse, AlertID: "x"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("sends after loss should fail with ErrClosed, got %v", err)
	}
}

func TestHeartbeatCarriesCachedFix(t *testing.T) {
	engine := &fakeEngine{}
	srv := httptest.NewServer(http.HandlerFunc(engine.handler))
	defer srv.Close()

	src := &countingSource{fix: Fix{Lat: -26.2041, Lng: 28.0473}}
	sampler := NewSampler(src.get, 5*time.Minute)

	c := newTestClient(t, srv.URL, Config{
		Role:              RoleVictim,
		Sampler:           sampler,
		HeartbeatInterval: 50 * time.Millisecond,
	})
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := c.JoinRoom("alert-1"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return engine.locationCount() >= 2 })

	engine.mu.Lock()
	first := engine.locations[0]
	engine.mu.Unlock()
	if first.Location == nil || first.Location.Lat != -26.2041 {
		t.Fatalf("heartbeat should carry the sampler fix, got %+v", first.Location)
	}
	if first.AlertID != "alert-1" {
		t.Fatalf("heartbeat should target the joined room, got %s", first.AlertID)
	}

	// Repeated heartbeats reuse the cached fix instead of waking the
	// positioning hardware.
	if src.calls != 1 {
		t.Fatalf("expected a single source acquisition, got %d", src.calls)
	}
}

func TestCloseStopsLoops(t *testing.T) {
	engine := &fakeEngine{}
	srv := httptest.NewServer(http.HandlerFunc(engine.handler))
	defer srv.Close()

	c := NewClient(Config{ServerURL: srv.URL})
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
	if err := c.JoinRoom("alert-1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
