// CrisisLink device simulator. Drives the tracking engine with a
// scripted victim or responder so rescue flows can be exercised
// without real phones in the field.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/clients/go/crisislink"
)

func main() {
	var (
		serverURL = flag.String("server", envOr("CRISISLINK_URL", "http://localhost:8080"), "engine base URL")
		role      = flag.String("role", "victim", "victim, responder or observer")
		alertID   = flag.String("alert", "", "alert ID to join (victims raise a new one when empty)")
		lat       = flag.Float64("lat", -26.2041, "starting latitude")
		lng       = flag.Float64("lng", 28.0473, "starting longitude")
		destLat   = flag.Float64("dest-lat", 0, "destination latitude (responders walk toward it)")
		destLng   = flag.Float64("dest-lng", 0, "destination longitude")
		name      = flag.String("name", "sim-responder", "responder name for registration")
		badge     = flag.String("badge", "SIM-001", "responder badge for registration")
		emergency = flag.String("type", "medical", "emergency type for new alerts")
		step      = flag.Duration("step", 5*time.Second, "interval between simulated fixes")
	)
	flag.Parse()

	// Simulated devices move constantly, so the fix cache is kept short.
	pos := &walker{lat: *lat, lng: *lng, destLat: *destLat, destLng: *destLng}
	sampler := crisislink.NewSampler(pos.fix, time.Second)

	client := crisislink.NewClient(crisislink.Config{
		ServerURL: *serverURL,
		Role:      *role,
		Sampler:   sampler,
	})

	client.OnEvent(func(ev crisislink.Event) {
		switch ev.Type {
		case crisislink.EventSnapshot:
			var snap struct {
				AlertID string `json:"alert_id"`
				Status  string `json:"status"`
			}
			json.Unmarshal(ev.Snapshot, &snap)
			fmt.Printf("joined %s (status %s)\n", snap.AlertID, snap.Status)
			// A raised SOS is joined server-side; adopt the room locally
			// so fixes and heartbeats target it.
			if !tracked(client, snap.AlertID) {
				client.JoinRoom(snap.AlertID)
			}
		case crisislink.EventStatusUpdate:
			fmt.Printf("status: %s\n", ev.Status)
		case crisislink.EventRouteUpdate:
			fmt.Printf("route: %s\n", string(ev.Route))
		case crisislink.EventAgentMessage:
			fmt.Printf("[%s] %s\n", ev.Role, ev.Message)
		case crisislink.EventError:
			fmt.Fprintf(os.Stderr, "rejected: %s\n", ev.Message)
		default:
			fmt.Printf("event: %s\n", ev.Type)
		}
	})

	if *role == "responder" {
		resp, err := client.Register(*name, *badge, "")
		exitOnError(err)
		fmt.Printf("registered as %s\n", resp.ID)
	}

	exitOnError(client.Connect())
	defer client.Close()

	switch {
	case *alertID != "":
		exitOnError(client.JoinRoom(*alertID))
	case *role == "victim":
		exitOnError(client.RaiseSOS(crisislink.AlertRequest{
			Type: *emergency,
			Lat:  *lat,
			Lng:  *lng,
		}))
	default:
		fmt.Fprintln(os.Stderr, "non-victim roles need -alert")
		os.Exit(1)
	}

	// Walk a fix into every joined room on each step.
	stop := sampler.Watch(*step, func(fix crisislink.Fix) {
		for _, id := range client.Rooms() {
			client.SendLocation(id, fix)
		}
	})
	defer stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-client.Done():
		exitOnError(client.Err())
	}
}

// walker produces fixes that drift toward a destination, roughly 50
// meters per sample.
type walker struct {
	lat, lng         float64
	destLat, destLng float64
}

func (w *walker) fix(ctx context.Context) (crisislink.Fix, error) {
	if w.destLat != 0 || w.destLng != 0 {
		dLat := w.destLat - w.lat
		dLng := w.destLng - w.lng
		dist := math.Hypot(dLat, dLng)
		if dist > 0.0005 {
			w.lat += dLat / dist * 0.0005
			w.lng += dLng / dist * 0.0005
		}
	}
	return crisislink.Fix{
		Lat:       w.lat,
		Lng:       w.lng,
		Accuracy:  10,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func tracked(c *crisislink.Client, alertID string) bool {
	for _, id := range c.Rooms() {
		if id == alertID {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
