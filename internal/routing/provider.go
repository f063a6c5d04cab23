package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// ErrNoRoutes indicates the provider answered but produced no usable
// candidate.
var ErrNoRoutes = errors.New("routing: provider returned no routes")

// Provider obtains candidate routes between two points. trafficAware
// requests alternatives with live traffic durations; without it a single
// base-duration route is acceptable.
type Provider interface {
	Routes(ctx context.Context, origin, dest models.Point, trafficAware bool) ([]models.RouteCandidate, error)
}

// DirectionsClient calls an external directions HTTP API.
type DirectionsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDirectionsClient creates a client for the directions provider.
func NewDirectionsClient(baseURL, apiKey string, timeout time.Duration) *DirectionsClient {
	return &DirectionsClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// directionsResponse mirrors the provider's wire format.
type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
			DurationInTraffic *struct {
				Value int `json:"value"`
			} `json:"duration_in_traffic"`
		} `json:"legs"`
	} `json:"routes"`
}

// Routes requests candidate routes from the provider.
func (c *DirectionsClient) Routes(ctx context.Context, origin, dest models.Point, trafficAware bool) ([]models.RouteCandidate, error) {
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	q.Set("destination", fmt.Sprintf("%f,%f", dest.Lat, dest.Lng))
	if trafficAware {
		q.Set("alternatives", "true")
		q.Set("departure_time", "now")
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions request: status %d", resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("directions response: %w", err)
	}
	if body.Status != "" && body.Status != "OK" {
		return nil, fmt.Errorf("directions response: status %s", body.Status)
	}

	candidates := make([]models.RouteCandidate, 0, len(body.Routes))
	for _, r := range body.Routes {
		if len(r.Legs) == 0 {
			continue
		}
		// Legs without live data count at their base duration, so a
		// partially covered route cannot undercut its own base time.
		var distance, duration, traffic int
		hasTraffic := false
		for _, leg := range r.Legs {
			distance += leg.Distance.Value
			duration += leg.Duration.Value
			if leg.DurationInTraffic != nil {
				traffic += leg.DurationInTraffic.Value
				hasTraffic = true
			} else {
				traffic += leg.Duration.Value
			}
		}
		if !hasTraffic {
			traffic = 0
		}
		candidates = append(candidates, models.RouteCandidate{
			Summary:                r.Summary,
			DistanceMeters:         distance,
			DurationSeconds:        duration,
			TrafficDurationSeconds: traffic,
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoRoutes
	}
	return candidates, nil
}
