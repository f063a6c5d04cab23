package models

import (
	"testing"
	"time"
)

func TestLocationSampleExpired(t *testing.T) {
	now := time.Now()

	fresh := LocationSample{Timestamp: now.UnixMilli(), TTLSeconds: 300}
	if fresh.Expired(now) {
		t.Fatal("fresh sample should not be expired")
	}
	if fresh.Expired(now.Add(4 * time.Minute)) {
		t.Fatal("sample within TTL should not be expired")
	}
	if !fresh.Expired(now.Add(6 * time.Minute)) {
		t.Fatal("sample past TTL should be expired")
	}

	// No TTL means the fix never goes stale on its own.
	pinned := LocationSample{Timestamp: now.UnixMilli()}
	if pinned.Expired(now.Add(24 * time.Hour)) {
		t.Fatal("sample without TTL should never expire")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusConnecting, StatusDispatched, StatusTracking, StatusArrived} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestAdjustedSeconds(t *testing.T) {
	withTraffic := RouteCandidate{DurationSeconds: 500, TrafficDurationSeconds: 540}
	if withTraffic.AdjustedSeconds() != 540 {
		t.Fatalf("traffic duration should win, got %d", withTraffic.AdjustedSeconds())
	}
	withoutTraffic := RouteCandidate{DurationSeconds: 500}
	if withoutTraffic.AdjustedSeconds() != 500 {
		t.Fatalf("base duration should apply, got %d", withoutTraffic.AdjustedSeconds())
	}
}

func TestRouteSelected(t *testing.T) {
	route := Route{Candidates: []RouteCandidate{
		{Summary: "A"},
		{Summary: "B", Selected: true},
	}}
	if sel := route.Selected(); sel == nil || sel.Summary != "B" {
		t.Fatalf("expected B, got %+v", sel)
	}

	empty := Route{}
	if empty.Selected() != nil {
		t.Fatal("empty route has no selection")
	}
}

func TestEventConstructorsTagKinds(t *testing.T) {
	cases := []struct {
		ev   Event
		want EventType
	}{
		{NewLocationUpdate("a", RoleVictim, "v", LocationSample{}), EventLocationUpdate},
		{NewAgentLocation("a", "g", LocationSample{}), EventAgentLocation},
		{NewStatusUpdate("a", StatusTracking), EventStatusUpdate},
		{NewAgentArrived("a", "g"), EventAgentArrived},
		{NewRescueCompleted("a", "d"), EventRescueCompleted},
		{NewRescueCancelled("a", "d"), EventRescueCancelled},
		{NewErrorEvent("a", "boom"), EventError},
	}
	for _, tc := range cases {
		if tc.ev.Type != tc.want {
			t.Errorf("expected %s, got %s", tc.want, tc.ev.Type)
		}
		if tc.ev.ID == "" || tc.ev.Timestamp == 0 {
			t.Errorf("%s: envelope missing ID or timestamp", tc.want)
		}
	}
}
